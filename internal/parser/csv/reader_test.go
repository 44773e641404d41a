package csv

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/bendy2509/etl-projet-1/internal/schema"
	"github.com/bendy2509/etl-projet-1/internal/table"
	"github.com/bendy2509/etl-projet-1/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func itemsContract() schema.Contract { return schema.Olist()[schema.OrderItems] }

func TestReadTypesCellsFromContract(t *testing.T) {
	t.Parallel()

	in := "order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value\n" +
		"A,1,p1,s1,09/19/2017 09:45,58.9,13.29\n" +
		"B,1,p2,s2,,10,\n"

	tb, err := Read(context.Background(), strings.NewReader(in), itemsContract(), Options{})
	require.NoError(t, err)
	require.Equal(t, 2, tb.Len())
	assert.Equal(t, schema.OrderItems, tb.Name)

	assert.Equal(t, table.Str("A"), tb.Get(0, "order_id"))
	assert.Equal(t, table.Num(58.9), tb.Get(0, "price"))
	assert.Equal(t, table.Str("09/19/2017 09:45"), tb.Get(0, "shipping_limit_date"))
	assert.True(t, tb.Get(1, "freight_value").IsNull())
	assert.True(t, tb.Get(1, "shipping_limit_date").IsNull())
}

func TestReadDropsLeadingIndexColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "named index", header: "index"},
		{name: "blank index", header: ""},
		{name: "pandas unnamed", header: "Unnamed: 0"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := tt.header + ",seller_id,seller_zip_code_prefix\n0,s1,01037\n"
			tb, err := Read(context.Background(), strings.NewReader(in), schema.Olist()[schema.Sellers], Options{})
			require.NoError(t, err)
			assert.Equal(t, []string{"seller_id", "seller_zip_code_prefix"}, tb.Columns)
			assert.Equal(t, table.Str("01037"), tb.Get(0, "seller_zip_code_prefix"))
		})
	}
}

func TestReadStripsBOM(t *testing.T) {
	t.Parallel()

	in := "\ufeffseller_id\ns1\n"
	tb, err := Read(context.Background(), strings.NewReader(in), schema.Olist()[schema.Sellers], Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"seller_id"}, tb.Columns)
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty file", in: "", want: "empty file"},
		{name: "missing required column", in: "order_id,product_id\nA,p\n", want: "missing required column"},
		{name: "ragged row", in: "order_id,product_id,seller_id,price,freight_value\nA,p,s,1\n", want: "line 2"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(context.Background(), strings.NewReader(tt.in), itemsContract(), Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadNAMarkersAreNull(t *testing.T) {
	t.Parallel()

	in := "order_id,product_id,seller_id,price,freight_value\n" +
		"A,p1,s1,10,n/a\n" +
		"B,NA,s2,NaN,1\n" +
		"C,p3,null,<NA>,None\n"
	tb, err := Read(context.Background(), strings.NewReader(in), itemsContract(), Options{Log: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	require.Equal(t, 3, tb.Len())

	assert.Equal(t, table.Num(10), tb.Get(0, "price"))
	assert.True(t, tb.Get(0, "freight_value").IsNull())
	assert.True(t, tb.Get(1, "product_id").IsNull(), "markers are null in text columns too")
	assert.True(t, tb.Get(1, "price").IsNull())
	assert.True(t, tb.Get(2, "seller_id").IsNull())
	assert.True(t, tb.Get(2, "price").IsNull())
	assert.True(t, tb.Get(2, "freight_value").IsNull())
}

func TestReadUnreadableNumbersBecomeNull(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	in := "order_id,product_id,seller_id,price,freight_value\n" +
		"A,p1,s1,abc,1\n" +
		"B,p2,s2,12,x\n" +
		"C,p3,s3,1..2,3\n"
	tb, err := Read(context.Background(), strings.NewReader(in), itemsContract(), Options{Log: log})
	require.NoError(t, err)
	require.Equal(t, 3, tb.Len())

	assert.True(t, tb.Get(0, "price").IsNull())
	assert.Equal(t, table.Num(12), tb.Get(1, "price"))
	assert.True(t, tb.Get(1, "freight_value").IsNull())
	assert.True(t, tb.Get(2, "price").IsNull())
	assert.Equal(t, table.Num(3), tb.Get(2, "freight_value"))

	out := logs.String()
	assert.Contains(t, out, "column=price cells=2")
	assert.Contains(t, out, "column=freight_value cells=1")
	assert.NotContains(t, out, "column=order_id")
}

func TestReadDecodesWindows1252(t *testing.T) {
	t.Parallel()

	raw, err := charmap.Windows1252.NewEncoder().String("seller_id,seller_city\ns1,são paulo\n")
	require.NoError(t, err)

	tb, err := Read(context.Background(), bytes.NewReader([]byte(raw)), schema.Olist()[schema.Sellers], Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, table.Str("são paulo"), tb.Get(0, "seller_city"))
}

func TestReadNormalizesUnicode(t *testing.T) {
	t.Parallel()

	decomposed := "são paulo" // "a" + combining tilde
	in := "seller_id,seller_city\ns1," + decomposed + "\n"
	tb, err := Read(context.Background(), strings.NewReader(in), schema.Olist()[schema.Sellers], Options{NormalizeUnicode: true})
	require.NoError(t, err)
	assert.Equal(t, table.Str("são paulo"), tb.Get(0, "seller_city"))
}

func TestReadUnsupportedEncoding(t *testing.T) {
	t.Parallel()

	_, err := Read(context.Background(), strings.NewReader("a\n"), itemsContract(), Options{Encoding: "ebcdic"})
	require.Error(t, err)
}

func TestStripHeaderBOM(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, StripHeaderBOM([]string{"\ufeffa", "b"}))
	assert.Empty(t, StripHeaderBOM(nil))
}
