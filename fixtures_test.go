package spcall_test

import (
	"time"

	"github.com/ignaciocaff/spcall"
)

type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderShipped
	OrderCancelled
)

type OrderLine struct {
	Sku      string
	Qty      int
	Discount *float64
}

type GetOrderInput struct {
	OrderId  int
	Customer string
	Note     *string
	Status   OrderStatus
	Rush     bool
	Lines    []OrderLine
	PlacedAt time.Time
	secret   string
}

type OtherInput struct {
	OrderId  int
	Customer string
}

type OrderRow struct {
	ID       int    `db:"id"`
	Customer string `db:"customer"`
}

type LineRow struct {
	Sku string `db:"sku"`
	Qty int    `db:"qty"`
}

type TotalRow struct {
	Total float64 `db:"total"`
}

var orderParams = []string{"@orderId", "@customer", "@note", "@status", "@rush", "@lines", "@placedAt"}

func newOrderProfile(resultSets int) *spcall.Profile[GetOrderInput] {
	return spcall.NewProfile(spcall.Definition[GetOrderInput]{
		Name:       "GetOrder",
		ResultSets: resultSets,
		Parameters: orderParams,
	})
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
