// Package protocol names the commands and canonical responses of the
// foodgrid text protocol and parses the pipe-delimited command lines.
package protocol

import (
	"strings"
)

// Client-facing and inter-process command names.
const (
	CmdAddStore           = "addStore"
	CmdGetStoreInfo       = "getStoreInfo"
	CmdGetStoreProducts   = "getStoreProducts"
	CmdUpdateStock        = "updateStock"
	CmdAddProduct         = "addProduct"
	CmdRemoveProduct      = "removeProduct"
	CmdBuy                = "buy"
	CmdFindStores         = "findStores"
	CmdSearch             = "search"
	CmdGetSalesByCategory = "getSalesByCategory"
	CmdGetSalesByProduct  = "getSalesByProduct"

	CmdPing           = "ping"
	CmdMapResult      = "mapResult"
	CmdReducerResults = "reducerResults"
)

// Canonical response strings.
const (
	StoreNotFound       = "Store not found"
	NoStoresFound       = "No stores found"
	NoProductsAvailable = "No products available"
	NoSalesData         = "No sales data found"
	InvalidSearchFormat = "Invalid search format"
	InvalidDataFormat   = "Invalid data format"
	UnknownCommand      = "Unknown command"
	Acknowledged        = "acknowledged"
	Pong                = "pong"
)

// Name returns the command name of a line: everything before the first
// '|' or space.
func Name(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, "| "); i >= 0 {
		return line[:i]
	}
	return line
}

// Arg returns everything after the command name and its separator,
// with surrounding whitespace removed.
func Arg(line string) string {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, "| ")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i+1:])
}

// HasPayload reports whether a client sends an object frame after the
// command line.
func HasPayload(name string) bool {
	switch name {
	case CmdAddStore, CmdGetStoreInfo, CmdUpdateStock, CmdAddProduct, CmdRemoveProduct:
		return true
	}
	return false
}

// WorkerHasPayload reports whether the master sends an object frame after
// the command line when talking to a worker. Besides the client payload
// commands, buy and getStoreProducts carry their arguments as objects.
func WorkerHasPayload(name string) bool {
	return HasPayload(name) || name == CmdBuy || name == CmdGetStoreProducts
}

// IsScatter reports whether the master sends the command to every worker.
func IsScatter(name string) bool {
	switch name {
	case CmdFindStores, CmdSearch, CmdGetSalesByCategory, CmdGetSalesByProduct:
		return true
	}
	return false
}

// IsError reports whether a response is an in-band failure.
func IsError(resp string) bool {
	return strings.HasPrefix(resp, "Error")
}

// RequestType is the telemetry label for a command.
func RequestType(name string) string {
	if name == CmdBuy {
		return "purchase"
	}
	return name
}
