package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Hand-written ABI fragments for the four deployed contracts. Only the
// functions the dashboard actually calls are declared.
var (
	marketABI       abi.ABI // PredictionMarket: market registry reads
	exchangeABI     abi.ABI // CLOBExchange: order book reads + order cancel
	tokenManagerABI abi.ABI // TokenManager: balance reads + funded order writes
	facadeABI       abi.ABI // PolyPredictMarket: admin writes + address lookups
)

func init() {
	var err error

	marketABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "getMarket",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "marketId", "type": "uint256"}],
			"outputs": [
				{"name": "question", "type": "string"},
				{"name": "outcomes", "type": "string[]"},
				{"name": "endTime", "type": "uint256"},
				{"name": "status", "type": "uint8"},
				{"name": "resolvedOutcomeIndex", "type": "uint256"},
				{"name": "creator", "type": "address"},
				{"name": "createdAt", "type": "uint256"}
			]
		},
		{
			"name": "admin",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "address"}]
		}
	]`))
	if err != nil {
		panic("market abi parse: " + err.Error())
	}

	exchangeABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "getBestPrices",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "marketId", "type": "uint256"}],
			"outputs": [
				{"name": "bestBid", "type": "uint256"},
				{"name": "bestAsk", "type": "uint256"}
			]
		},
		{
			"name": "getPosition",
			"type": "function",
			"stateMutability": "view",
			"inputs": [
				{"name": "trader", "type": "address"},
				{"name": "marketId", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "int256"}]
		},
		{
			"name": "getUserOrders",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "trader", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256[]"}]
		},
		{
			"name": "getOrder",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "orderId", "type": "uint256"}],
			"outputs": [
				{"name": "id", "type": "uint256"},
				{"name": "marketId", "type": "uint256"},
				{"name": "isBuy", "type": "bool"},
				{"name": "price", "type": "uint256"},
				{"name": "amount", "type": "uint256"},
				{"name": "filled", "type": "uint256"},
				{"name": "isActive", "type": "bool"},
				{"name": "isResolved", "type": "bool"},
				{"name": "timestamp", "type": "uint256"},
				{"name": "trader", "type": "address"}
			]
		},
		{
			"name": "cancelOrder",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [{"name": "orderId", "type": "uint256"}],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("exchange abi parse: " + err.Error())
	}

	tokenManagerABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "getAvailableBalance",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "deposit",
			"type": "function",
			"stateMutability": "payable",
			"inputs": [],
			"outputs": []
		},
		{
			"name": "placeOrderWithFunds",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "marketId", "type": "uint256"},
				{"name": "isBuy", "type": "bool"},
				{"name": "price", "type": "uint256"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "placeMarketOrderWithFunds",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "marketId", "type": "uint256"},
				{"name": "isBuy", "type": "bool"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "claimProfit",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [{"name": "marketId", "type": "uint256"}],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("token manager abi parse: " + err.Error())
	}

	facadeABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "createMarket",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "question", "type": "string"},
				{"name": "outcomes", "type": "string[]"},
				{"name": "duration", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "resolveMarket",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [
				{"name": "marketId", "type": "uint256"},
				{"name": "outcomeIndex", "type": "uint256"}
			],
			"outputs": []
		},
		{
			"name": "cancelMarket",
			"type": "function",
			"stateMutability": "nonpayable",
			"inputs": [{"name": "marketId", "type": "uint256"}],
			"outputs": []
		},
		{
			"name": "getExchangeAddress",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "address"}]
		},
		{
			"name": "getTokenManagerAddress",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "address"}]
		},
		{
			"name": "getMarketAddress",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "address"}]
		},
		{
			"name": "admin",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "address"}]
		}
	]`))
	if err != nil {
		panic("facade abi parse: " + err.Error())
	}
}
