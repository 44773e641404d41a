package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractCheck(t *testing.T) {
	t.Parallel()

	c := Olist()[OrderItems]

	tests := []struct {
		name    string
		header  []string
		wantErr bool
	}{
		{
			name:   "all required present",
			header: []string{"order_id", "product_id", "seller_id", "price", "freight_value"},
		},
		{
			name:   "extra columns accepted",
			header: []string{"order_id", "product_id", "seller_id", "price", "freight_value", "x"},
		},
		{
			name:    "price missing",
			header:  []string{"order_id", "product_id", "seller_id", "freight_value"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := c.Check(tt.header)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMissingColumn)
				assert.Contains(t, err.Error(), "price")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestContractTypeOf(t *testing.T) {
	t.Parallel()

	c := Olist()[Customers]
	assert.Equal(t, TypeText, c.TypeOf("customer_zip_code_prefix"))
	assert.Equal(t, TypeText, c.TypeOf("undeclared"))
	assert.Equal(t, TypeNumber, Olist()[OrderItems].TypeOf("price"))
}

func TestDefaultDateColumns(t *testing.T) {
	t.Parallel()

	got := DefaultDateColumns()
	assert.Equal(t, []string{"shipping_limit_date"}, got[OrderItems])
	assert.Equal(t, []string{"review_creation_date", "review_answer_timestamp"}, got[OrderReviews])
	assert.Len(t, got[Orders], 5)
	assert.NotContains(t, got, Customers)
}

func TestOlistCoversSourceTables(t *testing.T) {
	t.Parallel()

	cs := Olist()
	for _, name := range SourceTables {
		_, ok := cs[name]
		assert.True(t, ok, name)
	}
}
