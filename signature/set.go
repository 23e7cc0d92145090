package signature

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/types"
)

// Set 一次提交的有序签名集合
type Set [][]byte

// Verification 签名集合校验结果
type Verification struct {
	Signers []common.Address // 与签名顺序一致
	Weight  *big.Int         // 去重后有效签名者权重之和
	Total   *big.Int
	Quorum  uint8
}

// Clone 深拷贝签名集合
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for i, sig := range s {
		out[i] = append([]byte(nil), sig...)
	}
	return out
}

// Hex 返回每个签名的十六进制表示
func (s Set) Hex() []string {
	out := make([]string, len(s))
	for i, sig := range s {
		out[i] = hexutil.Encode(sig)
	}
	return out
}

// ParseSet 解析十六进制签名列表
func ParseSet(hexSigs []string) (Set, error) {
	set := make(Set, 0, len(hexSigs))
	for i, h := range hexSigs {
		h = strings.TrimSpace(h)
		if !strings.HasPrefix(h, "0x") && !strings.HasPrefix(h, "0X") {
			h = "0x" + h
		}
		sig, err := hexutil.Decode(h)
		if err != nil {
			return nil, fmt.Errorf("decode signature %d: %w", i, err)
		}
		set = append(set, sig)
	}
	return set, nil
}

// Recover 依次恢复每个签名的签名者地址
func (s Set) Recover(digest action.Digest, recoverer Recoverer) ([]common.Address, error) {
	if recoverer == nil {
		recoverer = DefaultRecoverer
	}
	signers := make([]common.Address, len(s))
	for i, sig := range s {
		addr, err := recoverer.RecoverSigner(digest, sig)
		if err != nil {
			daoErr := types.Errorf(types.KindUnauthorizedSigner, "signature %d is not recoverable", i)
			daoErr.Cause = err
			return nil, daoErr
		}
		signers[i] = addr
	}
	return signers, nil
}

// Verify 校验签名集合
//
// 校验顺序：
//  1. 恢复全部签名者
//  2. 重复签名者（与顺序无关）
//  3. 成员资格（权重须大于 0）
//  4. 法定人数
func (s Set) Verify(digest action.Digest, roster *Roster, quorum uint8, recoverer Recoverer) (*Verification, error) {
	if roster == nil {
		return nil, fmt.Errorf("roster is nil")
	}
	if err := ValidateQuorum(quorum); err != nil {
		return nil, types.NewDaoError(types.KindMalformedAction, "", err.Error())
	}

	// 1. 恢复
	signers, err := s.Recover(digest, recoverer)
	if err != nil {
		return nil, err
	}

	// 2. 去重
	seen := make(map[common.Address]int, len(signers))
	for i, addr := range signers {
		if first, ok := seen[addr]; ok {
			return nil, types.NewDaoError(types.KindDuplicateSigner, "",
				fmt.Sprintf("signatures %d and %d both recover to %s", first, i, addr.Hex()))
		}
		seen[addr] = i
	}

	// 3. 成员资格
	weight := new(big.Int)
	for i, addr := range signers {
		if !roster.IsMember(addr) {
			return nil, types.NewDaoError(types.KindUnauthorizedSigner, "",
				fmt.Sprintf("signature %d recovers to non-member %s", i, addr.Hex()))
		}
		weight.Add(weight, roster.Weight(addr))
	}

	// 4. 法定人数
	total := roster.Total()
	if !QuorumReached(weight, total, quorum) {
		return nil, types.NewDaoError(types.KindQuorumNotReached, "",
			fmt.Sprintf("signed weight %v of %v, need %d%% (%v)", weight, total, quorum, RequiredWeight(total, quorum)))
	}

	return &Verification{
		Signers: signers,
		Weight:  weight,
		Total:   total,
		Quorum:  quorum,
	}, nil
}
