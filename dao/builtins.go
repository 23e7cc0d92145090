package dao

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xdao/dao-sdk-go/action"
	"github.com/xdao/dao-sdk-go/signature"
)

// 内置函数 revert 原因
const (
	reasonUnknownFunction   = "DAO: unknown function"
	reasonInvalidQuorum     = "DAO: quorum should be 1 <= q <= 100"
	reasonMintingDisabled   = "GT: minting is disabled"
	reasonBurningDisabled   = "GT: burning is disabled"
	reasonBurnExceeds       = "ERC20: burn amount exceeds balance"
	reasonAlreadyPermitted  = "DAO: already permitted"
	reasonNotPermitted      = "DAO: not a permitted"
	reasonTransferForbidden = "GT: transfer is prohibited"
	reasonZeroAddress       = "ERC20: zero address"
)

var boolTrue = func() []byte {
	out, _ := parsedABI.Methods["changeQuorum"].Outputs.Pack(true)
	return out
}()

// builtinLocked 执行自调用；先校验后修改状态
func (e *Entity) builtinLocked(data []byte) ([]byte, error) {
	if len(data) < action.SelectorLength {
		return nil, revert(reasonUnknownFunction, "empty self call")
	}
	method, err := parsedABI.MethodById(data[:action.SelectorLength])
	if err != nil {
		return nil, revert(reasonUnknownFunction, "selector %x", data[:action.SelectorLength])
	}
	args, err := method.Inputs.Unpack(data[action.SelectorLength:])
	if err != nil {
		return nil, revert(reasonUnknownFunction, "decode %s: %v", method.Name, err)
	}

	switch method.Name {
	case "changeQuorum":
		q := args[0].(uint8)
		if signature.ValidateQuorum(q) != nil {
			return nil, revert(reasonInvalidQuorum, "quorum %d", q)
		}
		e.logger.Info("quorum changed", "from", e.quorum, "to", q)
		e.quorum = q

	case "mint":
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		if !e.mintable {
			return nil, revert(reasonMintingDisabled, "mint %v to %s", amount, to.Hex())
		}
		if to == (common.Address{}) {
			return nil, revert(reasonZeroAddress, "mint to zero address")
		}
		e.credit(to, amount)

	case "burn":
		from, amount := args[0].(common.Address), args[1].(*big.Int)
		if !e.burnable {
			return nil, revert(reasonBurningDisabled, "burn %v from %s", amount, from.Hex())
		}
		bal, ok := e.balances[from]
		if !ok || bal.Cmp(amount) < 0 {
			return nil, revert(reasonBurnExceeds, "burn %v from %s", amount, from.Hex())
		}
		bal.Sub(bal, amount)
		e.totalSupply.Sub(e.totalSupply, amount)

	case "disableMinting":
		e.mintable = false

	case "disableBurning":
		e.burnable = false

	case "addPermitted":
		p := args[0].(common.Address)
		if e.containsPermittedLocked(p) {
			return nil, revert(reasonAlreadyPermitted, "%s", p.Hex())
		}
		e.permitted = append(e.permitted, p)

	case "removePermitted":
		p := args[0].(common.Address)
		idx := -1
		for i, a := range e.permitted {
			if a == p {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, revert(reasonNotPermitted, "%s", p.Hex())
		}
		e.permitted = append(e.permitted[:idx], e.permitted[idx+1:]...)

	case "transfer":
		return nil, revert(reasonTransferForbidden, "governance tokens are not transferable")

	default:
		return nil, revert(reasonUnknownFunction, "%s is not callable", method.Name)
	}
	return boolTrue, nil
}
