package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// revertKinds revert 原因前缀到错误种类的映射
//
// 覆盖 DAO 合约及各模块（Launchpad/Crowdfunding/DocumentSign 等）的时间窗口类错误
var revertKinds = []struct {
	match string
	kind  ErrorKind
}{
	{ReasonQuorumNotReached, KindQuorumNotReached},
	{ReasonDuplicateSigner, KindDuplicateSigner},
	{ReasonVotingAlreadyExecuted, KindVotingAlreadyExecuted},
	{ReasonNotPermitted, KindNotPermitted},
	{ReasonUnauthorizedSigner, KindUnauthorizedSigner},
	{"only for members", KindUnauthorizedSigner},
	{"Invalid Tx parameters", KindMalformedAction},
	{ReasonMalformedAction, KindMalformedAction},
	{ReasonActionExpired, KindActionExpired},
	{"sale is over", KindActionExpired},
	{ReasonActionNotYetActive, KindActionNotYetActive},
	{"Too early", KindActionNotYetActive},
	{"Effective date can`t be in past", KindActionExpired},
}

const (
	revertPrefix       = "execution reverted"
	reasonStringMarker = "reverted with reason string"
)

// ParseRevert 将节点返回的 revert 信息归类为 DaoError
//
// message 形如 "execution reverted: DAO: quorum is not reached"；
// data 可以是 ABI 编码的 Error(string)（0x08c379a0...），优先解析 data。
// 无法识别的原因归为 ExecutionReverted。
func ParseRevert(message string, data interface{}) *DaoError {
	reason := revertReasonFromData(data)
	if reason == "" {
		reason = strings.TrimSpace(strings.TrimPrefix(message, revertPrefix))
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	}
	if idx := strings.Index(reason, reasonStringMarker); idx >= 0 {
		reason = strings.TrimSpace(reason[idx+len(reasonStringMarker):])
	}
	reason = strings.Trim(reason, "'\"")

	for _, rk := range revertKinds {
		if strings.Contains(reason, rk.match) {
			return NewDaoError(rk.kind, reason, message)
		}
	}
	return NewDaoError(KindExecutionReverted, reason, message)
}

// IsRevertMessage 判断 JSON-RPC 错误消息是否来自合约 revert
func IsRevertMessage(message string) bool {
	return strings.Contains(message, revertPrefix) || strings.Contains(message, reasonStringMarker)
}

// revertReasonFromData 从 JSON-RPC error.data 中解析 revert 原因
func revertReasonFromData(data interface{}) string {
	var hexData string
	switch v := data.(type) {
	case string:
		hexData = v
	case map[string]interface{}:
		// 部分节点（如 hardhat）将 data 包在对象里
		if s, ok := v["data"].(string); ok {
			hexData = s
		} else if s, ok := v["message"].(string); ok {
			return s
		}
	default:
		return ""
	}

	raw, err := hexutil.Decode(hexData)
	if err != nil {
		return ""
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return ""
	}
	return reason
}
