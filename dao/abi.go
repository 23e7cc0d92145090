package dao

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI DAO 合约接口（执行、查询、自调用内置函数与事件）
const ABI = `[
  {"type":"function","name":"execute","stateMutability":"nonpayable","inputs":[
    {"name":"_target","type":"address"},{"name":"_data","type":"bytes"},
    {"name":"_value","type":"uint256"},{"name":"_nonce","type":"uint256"},
    {"name":"_timestamp","type":"uint256"},{"name":"_sigs","type":"bytes[]"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"executePermitted","stateMutability":"nonpayable","inputs":[
    {"name":"_target","type":"address"},{"name":"_data","type":"bytes"},{"name":"_value","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"quorum","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"executedTx","stateMutability":"view","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"mintable","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"burnable","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"numberOfPermitted","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"containsPermitted","stateMutability":"view","inputs":[{"name":"p","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"changeQuorum","stateMutability":"nonpayable","inputs":[{"name":"_q","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"_to","type":"address"},{"name":"_amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"disableMinting","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"disableBurning","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"addPermitted","stateMutability":"nonpayable","inputs":[{"name":"p","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"removePermitted","stateMutability":"nonpayable","inputs":[{"name":"p","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"event","name":"Executed","anonymous":false,"inputs":[
    {"name":"target","type":"address","indexed":true},{"name":"data","type":"bytes","indexed":false},
    {"name":"value","type":"uint256","indexed":false},{"name":"nonce","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false},{"name":"sigs","type":"bytes[]","indexed":false}]},
  {"type":"event","name":"ExecutedP","anonymous":false,"inputs":[
    {"name":"target","type":"address","indexed":true},{"name":"data","type":"bytes","indexed":false},
    {"name":"value","type":"uint256","indexed":false},{"name":"sender","type":"address","indexed":true}]}
]`

var parsedABI = mustParseABI(ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse dao abi: %v", err))
	}
	return parsed
}

// ParsedABI 返回解析后的 DAO ABI
func ParsedABI() abi.ABI {
	return parsedABI
}

// Pack 编码 DAO 方法调用数据
func Pack(method string, args ...interface{}) ([]byte, error) {
	return parsedABI.Pack(method, args...)
}
