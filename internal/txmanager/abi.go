// Package txmanager turns an execution bundle or an order-id list into a
// signed, submitted transaction and reaps the result (spec.md §4.5:
// "Transaction construction & submission", relative share 15%). Grounded
// on original_source/src/transaction_utils/mod.rs.
package txmanager

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	limitOrderRouterABI = mustParseABI(`[
		{"constant":false,"inputs":[{"name":"orderIds","type":"bytes32[]"}],"name":"executeLimitOrders","outputs":[],"type":"function"},
		{"constant":false,"inputs":[{"name":"orderIds","type":"bytes32[]"}],"name":"refreshOrder","outputs":[],"type":"function"}
	]`)

	limitOrderBookABI = mustParseABI(`[
		{"constant":false,"inputs":[{"name":"orderId","type":"bytes32"}],"name":"cancelOrder","outputs":[],"type":"function"}
	]`)

	sandboxOrderBookABI = mustParseABI(`[
		{"constant":false,"inputs":[{"name":"orderId","type":"bytes32"}],"name":"cancelOrder","outputs":[],"type":"function"},
		{"constant":false,"inputs":[{"name":"orderIds","type":"bytes32[]"}],"name":"refreshOrder","outputs":[],"type":"function"}
	]`)

	sandboxRouterABI = mustParseABI(`[
		{"constant":false,"inputs":[
			{"name":"orderIdBundles","type":"bytes32[][]"},
			{"name":"fillAmounts","type":"uint128[]"},
			{"name":"transferAddresses","type":"address[]"},
			{"name":"calls","type":"tuple[]","components":[
				{"name":"target","type":"address"},
				{"name":"callData","type":"bytes"}
			]}
		],"name":"executeSandboxMulticall","outputs":[],"type":"function"}
	]`)

	executorABI = mustParseABI(`[
		{"constant":false,"inputs":[],"name":"checkIn","outputs":[],"type":"function"},
		{"constant":true,"inputs":[{"name":"addr","type":"address"}],"name":"lastCheckIn","outputs":[{"name":"","type":"uint256"}],"type":"function"}
	]`)
)

func mustParseABI(js string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(js))
	if err != nil {
		panic(err)
	}
	return a
}
