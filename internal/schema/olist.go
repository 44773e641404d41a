package schema

// Source table names of the e-commerce export.
const (
	Customers    = "customers"
	Orders       = "orders"
	Payments     = "order_pymts"
	Products     = "products"
	Geolocation  = "geoloc"
	OrderItems   = "order_items"
	OrderReviews = "order_reviews"
	Sellers      = "sellers"
	Translation  = "translation"
)

// SourceTables lists the export files in extraction order.
var SourceTables = []string{
	Customers, Orders, Payments,
	Products, Geolocation, OrderItems,
	OrderReviews, Sellers, Translation,
}

func req(name, typ string) Field { return Field{Name: name, Type: typ, Required: true} }
func opt(name, typ string) Field { return Field{Name: name, Type: typ} }

// Olist returns the contracts of every source table, keyed by table name.
// Postal-code prefixes are text so leading zeros survive.
func Olist() map[string]Contract {
	cs := []Contract{
		{Name: Customers, Fields: []Field{
			req("customer_id", TypeText),
			opt("customer_unique_id", TypeText),
			req("customer_zip_code_prefix", TypeText),
			opt("customer_city", TypeText),
			opt("customer_state", TypeText),
		}},
		{Name: Orders, Fields: []Field{
			req("order_id", TypeText),
			req("customer_id", TypeText),
			opt("order_status", TypeText),
			req("order_purchase_timestamp", TypeDate),
			opt("order_approved_at", TypeDate),
			opt("order_delivered_carrier_date", TypeDate),
			opt("order_delivered_customer_date", TypeDate),
			opt("order_estimated_delivery_date", TypeDate),
		}},
		{Name: Payments, Fields: []Field{
			req("order_id", TypeText),
			opt("payment_sequential", TypeNumber),
			opt("payment_type", TypeText),
			opt("payment_installments", TypeNumber),
			opt("payment_value", TypeNumber),
		}},
		{Name: Products, Fields: []Field{
			req("product_id", TypeText),
			req("product_category_name", TypeText),
			opt("product_name_lenght", TypeNumber),
			opt("product_description_lenght", TypeNumber),
			opt("product_photos_qty", TypeNumber),
			opt("product_weight_g", TypeNumber),
			opt("product_length_cm", TypeNumber),
			opt("product_height_cm", TypeNumber),
			opt("product_width_cm", TypeNumber),
		}},
		{Name: Geolocation, Fields: []Field{
			req("geolocation_zip_code_prefix", TypeText),
			opt("geolocation_lat", TypeNumber),
			opt("geolocation_lng", TypeNumber),
			opt("geolocation_city", TypeText),
			opt("geolocation_state", TypeText),
		}},
		{Name: OrderItems, Fields: []Field{
			req("order_id", TypeText),
			opt("order_item_id", TypeNumber),
			req("product_id", TypeText),
			req("seller_id", TypeText),
			opt("shipping_limit_date", TypeDate),
			req("price", TypeNumber),
			req("freight_value", TypeNumber),
		}},
		{Name: OrderReviews, Fields: []Field{
			opt("review_id", TypeText),
			req("order_id", TypeText),
			req("review_score", TypeNumber),
			opt("review_comment_title", TypeText),
			opt("review_comment_message", TypeText),
			opt("review_creation_date", TypeDate),
			opt("review_answer_timestamp", TypeDate),
		}},
		{Name: Sellers, Fields: []Field{
			req("seller_id", TypeText),
			opt("seller_zip_code_prefix", TypeText),
			opt("seller_city", TypeText),
			opt("seller_state", TypeText),
		}},
		{Name: Translation, Fields: []Field{
			req("product_category_name", TypeText),
			req("product_category_name_english", TypeText),
		}},
	}
	out := make(map[string]Contract, len(cs))
	for _, c := range cs {
		out[c.Name] = c
	}
	return out
}

// DefaultDateColumns returns the date columns of every contract, which is
// the column map the date normalizer uses unless configured otherwise.
func DefaultDateColumns() map[string][]string {
	out := map[string][]string{}
	for name, c := range Olist() {
		if cols := c.DateColumns(); len(cols) > 0 {
			out[name] = cols
		}
	}
	return out
}
