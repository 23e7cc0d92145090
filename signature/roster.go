package signature

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxQuorum 法定人数为总权重的百分比，上限 100
const MaxQuorum = 100

// Member 成员及其投票权重
type Member struct {
	Address common.Address
	Weight  *big.Int
}

// Roster 某一时刻 DAO 成员权重快照
type Roster struct {
	weights map[common.Address]*big.Int
	total   *big.Int
}

// NewRoster 由成员列表构建快照，total 为 nil 时取成员权重之和
//
// 链上总供应量可能包含未列出的持有者，此时应显式传入 total
func NewRoster(members []Member, total *big.Int) (*Roster, error) {
	r := &Roster{
		weights: make(map[common.Address]*big.Int, len(members)),
	}
	sum := new(big.Int)
	for _, m := range members {
		if m.Weight == nil || m.Weight.Sign() < 0 {
			return nil, fmt.Errorf("member %s has invalid weight %v", m.Address.Hex(), m.Weight)
		}
		if _, dup := r.weights[m.Address]; dup {
			return nil, fmt.Errorf("member %s listed twice", m.Address.Hex())
		}
		r.weights[m.Address] = new(big.Int).Set(m.Weight)
		sum.Add(sum, m.Weight)
	}
	switch {
	case total == nil:
		r.total = sum
	case total.Cmp(sum) < 0:
		return nil, fmt.Errorf("total weight %v is below the members' sum %v", total, sum)
	default:
		r.total = new(big.Int).Set(total)
	}
	return r, nil
}

// Weight 返回成员权重，非成员返回 0
func (r *Roster) Weight(addr common.Address) *big.Int {
	if w, ok := r.weights[addr]; ok {
		return new(big.Int).Set(w)
	}
	return new(big.Int)
}

// IsMember 是否为权重大于 0 的成员
func (r *Roster) IsMember(addr common.Address) bool {
	w, ok := r.weights[addr]
	return ok && w.Sign() > 0
}

// Total 总权重
func (r *Roster) Total() *big.Int {
	return new(big.Int).Set(r.total)
}

// Len 成员数量
func (r *Roster) Len() int {
	return len(r.weights)
}

// QuorumReached weight·100 >= quorum·total
//
// 等价于链上 share·100/totalSupply >= quorum（整数除法）
func QuorumReached(weight, total *big.Int, quorum uint8) bool {
	if total.Sign() == 0 {
		return false
	}
	lhs := new(big.Int).Mul(weight, big.NewInt(MaxQuorum))
	rhs := new(big.Int).Mul(total, big.NewInt(int64(quorum)))
	return lhs.Cmp(rhs) >= 0
}

// RequiredWeight 达到法定人数所需的最小权重：ceil(quorum·total/100)
func RequiredWeight(total *big.Int, quorum uint8) *big.Int {
	num := new(big.Int).Mul(total, big.NewInt(int64(quorum)))
	num.Add(num, big.NewInt(MaxQuorum-1))
	return num.Div(num, big.NewInt(MaxQuorum))
}

// ValidateQuorum 检查法定人数取值范围 1..100
func ValidateQuorum(quorum uint8) error {
	if quorum == 0 || quorum > MaxQuorum {
		return fmt.Errorf("quorum must be between 1 and %d, got %d", MaxQuorum, quorum)
	}
	return nil
}
