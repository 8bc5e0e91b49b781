package spcall_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignaciocaff/spcall"
)

func TestReflectBindings(t *testing.T) {
	bindings := spcall.ReflectBindings[GetOrderInput]()

	rules := make(map[string]spcall.Rule)
	for _, b := range bindings {
		rules[b.Property] = b.Rule
	}
	assert.Equal(t, map[string]spcall.Rule{
		"OrderId":  spcall.RuleScalar,
		"Customer": spcall.RuleText,
		"Note":     spcall.RuleText,
		"Status":   spcall.RuleEnum,
		"Rush":     spcall.RuleScalar,
		"Lines":    spcall.RuleTable,
	}, rules)
}

func TestReflectBindingsNonStruct(t *testing.T) {
	assert.Empty(t, spcall.ReflectBindings[int]())
	assert.Empty(t, spcall.ReflectBindings[[]string]())
}

type pointerLine struct {
	Code  *string
	Units uint8
}

type bulkInput struct {
	Items []*pointerLine
	Tags  []string
	Meta  map[string]string
}

func TestReflectBindingsPointerElements(t *testing.T) {
	p := spcall.NewProfile(spcall.Definition[bulkInput]{
		Name:       "BulkLoad",
		Parameters: []string{"@items", "@tags", "@meta"},
	})
	p.BindFrom(bulkInput{
		Items: []*pointerLine{{Code: strPtr("x"), Units: 3}, nil, {Units: 1}},
		Tags:  []string{"a"},
	})

	table, ok := p.Parameter("@items").Value.(*spcall.Table)
	if assert.True(t, ok) {
		assert.Equal(t, "code", table.Columns[0].Name)
		assert.True(t, table.Columns[0].Nullable)
		assert.Equal(t, "units", table.Columns[1].Name)
		assert.Equal(t, [][]any{{"x", uint8(3)}, {nil, nil}, {nil, uint8(1)}}, table.Rows)
	}
	assert.Nil(t, p.Parameter("@tags").Value, "slices of scalars are not tables")
	assert.Nil(t, p.Parameter("@meta").Value)
}

type Currency string

type Amount float64

type Flag bool

type priceInput struct {
	Currency Currency
	Amount   Amount
	Taxed    Flag
	Fallback *Currency
}

func TestReflectBindingsNamedKinds(t *testing.T) {
	p := spcall.NewProfile(spcall.Definition[priceInput]{
		Name:       "SetPrice",
		Parameters: []string{"@currency", "@amount", "@taxed", "@fallback"},
	})
	eur := Currency("EUR")
	assert.Equal(t, spcall.BindApplied, p.BindFrom(priceInput{Currency: "USD", Amount: 9.5, Taxed: true, Fallback: &eur}))

	assert.Equal(t, "USD", p.Parameter("@currency").Value)
	assert.Equal(t, 9.5, p.Parameter("@amount").Value)
	assert.Equal(t, true, p.Parameter("@taxed").Value)
	assert.Equal(t, "EUR", p.Parameter("@fallback").Value)
}
