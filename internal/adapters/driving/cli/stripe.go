package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/connect-cli/internal/connectors/stripe"
	"github.com/custodia-labs/connect-cli/internal/core/domain"
	"github.com/custodia-labs/connect-cli/internal/core/services"
)

func init() {
	rootCmd.AddCommand(newConnectorCmd(services.ConnectorStripe,
		connectorOptions{loginKeys: []string{domain.KeyAPIKey}},
		newStripeCustomersCmd(),
		newStripeProductsCmd(),
		newStripePricesCmd(),
		newStripeInvoicesCmd(),
		newStripePaymentIntentsCmd(),
		newStripeSubscriptionsCmd(),
		newStripeRefundsCmd(),
		newStripeChargesCmd(),
		newStripeBalanceCmd(),
		newStripeEventsCmd(),
	))
}

func stripeClient(p domain.Profile) (*stripe.Client, error) {
	cfg := p.Config
	return stripe.New(stripe.Config{
		APIKey:  cfg.Get(domain.KeyAPIKey),
		Account: cfg.Get("account"),
		Version: cfg.Get("version"),
		BaseURL: cfg.Get(domain.KeyBaseURL),
	}, restOptions()...)
}

func stripeRun(fn func(cmd *cobra.Command, c *stripe.Client, args []string) error) func(*cobra.Command, []string) error {
	return withClient(services.ConnectorStripe, stripeClient, fn)
}

// zeroDecimal lists currencies whose amounts carry no minor unit.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true,
	"xof": true, "xpf": true,
}

// amountCell renders an amount in minor units, e.g. 1250 usd as "12.50 USD".
func amountCell(amount int64, currency string) string {
	cur := strings.ToLower(currency)
	if zeroDecimal[cur] {
		return fmt.Sprintf("%d %s", amount, strings.ToUpper(cur))
	}
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, strings.ToUpper(cur))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func addStripeListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "page size (1-100)")
	cmd.Flags().String("starting-after", "", "cursor: list objects after this ID")
	cmd.Flags().String("ending-before", "", "cursor: list objects before this ID")
	cmd.Flags().StringSlice("expand", nil, "fields to expand")
	cmd.Flags().Bool("all", false, "follow pagination to the end")
}

func stripeListParams(cmd *cobra.Command) stripe.ListParams {
	limit, _ := cmd.Flags().GetInt("limit")
	after, _ := cmd.Flags().GetString("starting-after")
	before, _ := cmd.Flags().GetString("ending-before")
	expand, _ := cmd.Flags().GetStringSlice("expand")
	return stripe.ListParams{Limit: limit, StartingAfter: after, EndingBefore: before, Expand: expand}
}

func listAllFlag(cmd *cobra.Command) bool {
	all, _ := cmd.Flags().GetBool("all")
	return all
}

func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("metadata", nil, "metadata key=value (repeatable)")
	cmd.Flags().String("idempotency-key", "", "explicit Idempotency-Key (default: random)")
}

func metadataFlag(cmd *cobra.Command) (map[string]string, error) {
	pairs, _ := cmd.Flags().GetStringArray("metadata")
	if len(pairs) == 0 {
		return nil, nil
	}
	return parseAssignments(pairs)
}

func requestOptions(cmd *cobra.Command) []stripe.RequestOption {
	if key, _ := cmd.Flags().GetString("idempotency-key"); key != "" {
		return []stripe.RequestOption{stripe.WithIdempotencyKey(key)}
	}
	return nil
}

// optionalBool returns a pointer when the flag was given.
func optionalBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// --- customers ---

func customersView(items []stripe.Customer) *view {
	v := newView("ID", "EMAIL", "NAME", "BALANCE", "CREATED")
	for _, c := range items {
		v.add(c.ID, c.Email, c.Name, amountCell(c.Balance, c.Currency), unixCell(c.Created))
	}
	return v
}

func newStripeCustomersCmd() *cobra.Command {
	customersCmd := &cobra.Command{
		Use:   "customers",
		Short: "Manage customers",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			email, _ := cmd.Flags().GetString("email")
			params := stripe.CustomerListParams{ListParams: stripeListParams(cmd), Email: email}
			if listAllFlag(cmd) {
				items, err := c.Customers.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, customersView(items))
			}
			list, err := c.Customers.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, list, customersView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("email", "", "filter by exact email")

	getCmd := &cobra.Command{
		Use:   "get <customer-id>",
		Short: "Get a customer",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			cu, err := c.Customers.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, cu, customersView([]stripe.Customer{*cu}))
		}),
	}

	customerParams := func(cmd *cobra.Command) (stripe.CustomerParams, error) {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")
		description, _ := cmd.Flags().GetString("description")
		metadata, err := metadataFlag(cmd)
		return stripe.CustomerParams{
			Email: email, Name: name, Phone: phone, Description: description, Metadata: metadata,
		}, err
	}
	addCustomerFlags := func(cmd *cobra.Command) {
		cmd.Flags().String("email", "", "email address")
		cmd.Flags().String("name", "", "full name or business name")
		cmd.Flags().String("phone", "", "phone number")
		cmd.Flags().String("description", "", "internal description")
		addWriteFlags(cmd)
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			params, err := customerParams(cmd)
			if err != nil {
				return err
			}
			cu, err := c.Customers.Create(cmd.Context(), params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, cu, customersView([]stripe.Customer{*cu}))
		}),
	}
	addCustomerFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <customer-id>",
		Short: "Update a customer",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			params, err := customerParams(cmd)
			if err != nil {
				return err
			}
			cu, err := c.Customers.Update(cmd.Context(), args[0], params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, cu, customersView([]stripe.Customer{*cu}))
		}),
	}
	addCustomerFlags(updateCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete <customer-id>",
		Short: "Delete a customer",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			d, err := c.Customers.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, d, nil)
		}),
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search customers with Stripe's query language",
		Long: `Search customers, e.g.:
  connect stripe customers search "email~'@example.com' AND metadata['plan']:'pro'"`,
		Args: cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			if listAllFlag(cmd) {
				items, err := c.Customers.SearchAll(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd, items, customersView(items))
			}
			limit, _ := cmd.Flags().GetInt("limit")
			page, _ := cmd.Flags().GetString("page")
			res, err := c.Customers.Search(cmd.Context(), stripe.SearchParams{Query: args[0], Limit: limit, Page: page})
			if err != nil {
				return err
			}
			return render(cmd, res, customersView(res.Data))
		}),
	}
	searchCmd.Flags().Int("limit", 0, "page size (1-100)")
	searchCmd.Flags().String("page", "", "page cursor from a previous search")
	searchCmd.Flags().Bool("all", false, "follow pagination to the end")

	customersCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd, searchCmd)
	return customersCmd
}

// --- products and prices ---

func productsView(items []stripe.Product) *view {
	v := newView("ID", "NAME", "ACTIVE", "DEFAULT PRICE", "CREATED")
	for _, p := range items {
		v.add(p.ID, p.Name, boolCell(p.Active), deref(p.DefaultPrice), unixCell(p.Created))
	}
	return v
}

func newStripeProductsCmd() *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Manage products",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			params := stripe.ProductListParams{ListParams: stripeListParams(cmd), Active: optionalBool(cmd, "active")}
			if listAllFlag(cmd) {
				items, err := c.Products.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, productsView(items))
			}
			list, err := c.Products.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, list, productsView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().Bool("active", false, "filter by active state")

	getCmd := &cobra.Command{
		Use:   "get <product-id>",
		Short: "Get a product",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			p, err := c.Products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, p, productsView([]stripe.Product{*p}))
		}),
	}

	productParams := func(cmd *cobra.Command) (stripe.ProductParams, error) {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		metadata, err := metadataFlag(cmd)
		return stripe.ProductParams{
			Name: name, Description: description, Active: optionalBool(cmd, "active"), Metadata: metadata,
		}, err
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			params, err := productParams(cmd)
			if err != nil {
				return err
			}
			p, err := c.Products.Create(cmd.Context(), params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, p, productsView([]stripe.Product{*p}))
		}),
	}

	updateCmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Update a product",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			params, err := productParams(cmd)
			if err != nil {
				return err
			}
			p, err := c.Products.Update(cmd.Context(), args[0], params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, p, productsView([]stripe.Product{*p}))
		}),
	}
	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		cmd.Flags().String("name", "", "product name")
		cmd.Flags().String("description", "", "product description")
		cmd.Flags().Bool("active", true, "whether the product can be bought")
		addWriteFlags(cmd)
	}

	productsCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd)
	return productsCmd
}

func pricesView(items []stripe.Price) *view {
	v := newView("ID", "PRODUCT", "AMOUNT", "INTERVAL", "ACTIVE", "NICKNAME")
	for _, p := range items {
		amount := ""
		if p.UnitAmount != nil {
			amount = amountCell(*p.UnitAmount, p.Currency)
		}
		interval := ""
		if p.Recurring != nil {
			interval = p.Recurring.Interval
			if p.Recurring.IntervalCount > 1 {
				interval = strconv.Itoa(p.Recurring.IntervalCount) + " " + interval
			}
		}
		v.add(p.ID, p.Product, amount, interval, boolCell(p.Active), p.Nickname)
	}
	return v
}

func newStripePricesCmd() *cobra.Command {
	pricesCmd := &cobra.Command{
		Use:   "prices",
		Short: "Manage prices",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List prices",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			product, _ := cmd.Flags().GetString("product")
			typ, _ := cmd.Flags().GetString("type")
			params := stripe.PriceListParams{
				ListParams: stripeListParams(cmd), Product: product, Type: typ, Active: optionalBool(cmd, "active"),
			}
			if listAllFlag(cmd) {
				items, err := c.Prices.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, pricesView(items))
			}
			list, err := c.Prices.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, list, pricesView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("product", "", "filter by product")
	listCmd.Flags().String("type", "", "one_time or recurring")
	listCmd.Flags().Bool("active", false, "filter by active state")

	getCmd := &cobra.Command{
		Use:   "get <price-id>",
		Short: "Get a price",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			p, err := c.Prices.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, p, pricesView([]stripe.Price{*p}))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a price for a product",
		Long: `Create a price. Amounts are in the currency's minor unit:
  connect stripe prices create --product prod_123 --currency usd --amount 1500 --interval month`,
		Args: cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			product, _ := cmd.Flags().GetString("product")
			currency, _ := cmd.Flags().GetString("currency")
			amount, _ := cmd.Flags().GetInt64("amount")
			nickname, _ := cmd.Flags().GetString("nickname")
			interval, _ := cmd.Flags().GetString("interval")
			count, _ := cmd.Flags().GetInt("interval-count")
			metadata, err := metadataFlag(cmd)
			if err != nil {
				return err
			}

			params := stripe.PriceParams{
				Product:    product,
				Currency:   currency,
				UnitAmount: &amount,
				Nickname:   nickname,
				Metadata:   metadata,
			}
			if interval != "" {
				params.Recurring = &stripe.Recurring{Interval: interval, IntervalCount: count}
			}
			p, err := c.Prices.Create(cmd.Context(), params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, p, pricesView([]stripe.Price{*p}))
		}),
	}
	createCmd.Flags().String("product", "", "product ID")
	createCmd.Flags().String("currency", "usd", "three-letter currency code")
	createCmd.Flags().Int64("amount", 0, "unit amount in minor units")
	createCmd.Flags().String("nickname", "", "internal name")
	createCmd.Flags().String("interval", "", "recurring interval: day, week, month or year")
	createCmd.Flags().Int("interval-count", 0, "intervals between billings")
	addWriteFlags(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <price-id>",
		Short: "Update a price's nickname, active state or metadata",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			nickname, _ := cmd.Flags().GetString("nickname")
			metadata, err := metadataFlag(cmd)
			if err != nil {
				return err
			}
			p, err := c.Prices.Update(cmd.Context(), args[0], stripe.PriceParams{
				Nickname: nickname, Active: optionalBool(cmd, "active"), Metadata: metadata,
			}, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, p, pricesView([]stripe.Price{*p}))
		}),
	}
	updateCmd.Flags().String("nickname", "", "internal name")
	updateCmd.Flags().Bool("active", true, "whether the price can be used")
	addWriteFlags(updateCmd)

	pricesCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd)
	return pricesCmd
}

// --- invoices ---

func invoicesView(items []stripe.Invoice) *view {
	v := newView("ID", "NUMBER", "CUSTOMER", "STATUS", "TOTAL", "DUE")
	for _, in := range items {
		v.add(in.ID, in.Number, in.Customer, in.Status, amountCell(in.Total, in.Currency),
			amountCell(in.AmountRemaining, in.Currency))
	}
	return v
}

func newStripeInvoicesCmd() *cobra.Command {
	invoicesCmd := &cobra.Command{
		Use:   "invoices",
		Short: "Manage invoices",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			customer, _ := cmd.Flags().GetString("customer")
			status, _ := cmd.Flags().GetString("status")
			subscription, _ := cmd.Flags().GetString("subscription")
			params := stripe.InvoiceListParams{
				ListParams: stripeListParams(cmd), Customer: customer, Status: status, Subscription: subscription,
			}
			if listAllFlag(cmd) {
				items, err := c.Invoices.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, invoicesView(items))
			}
			list, err := c.Invoices.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, list, invoicesView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("customer", "", "filter by customer")
	listCmd.Flags().String("status", "", "draft, open, paid, uncollectible or void")
	listCmd.Flags().String("subscription", "", "filter by subscription")

	getCmd := &cobra.Command{
		Use:   "get <invoice-id>",
		Short: "Get an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			in, err := c.Invoices.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, in, invoicesView([]stripe.Invoice{*in}))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft invoice",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			customer, _ := cmd.Flags().GetString("customer")
			description, _ := cmd.Flags().GetString("description")
			method, _ := cmd.Flags().GetString("collection-method")
			days, _ := cmd.Flags().GetInt("days-until-due")
			metadata, err := metadataFlag(cmd)
			if err != nil {
				return err
			}
			in, err := c.Invoices.Create(cmd.Context(), stripe.InvoiceParams{
				Customer:         customer,
				Description:      description,
				CollectionMethod: method,
				DaysUntilDue:     days,
				AutoAdvance:      optionalBool(cmd, "auto-advance"),
				Metadata:         metadata,
			}, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, in, invoicesView([]stripe.Invoice{*in}))
		}),
	}
	createCmd.Flags().String("customer", "", "customer ID")
	createCmd.Flags().String("description", "", "memo shown on the invoice")
	createCmd.Flags().String("collection-method", "", "charge_automatically or send_invoice")
	createCmd.Flags().Int("days-until-due", 0, "days until due (send_invoice only)")
	createCmd.Flags().Bool("auto-advance", true, "let Stripe finalize the draft automatically")
	addWriteFlags(createCmd)

	invoicesCmd.AddCommand(listCmd, getCmd, createCmd)

	actions := []struct {
		use, short string
		run        func(c *stripe.Client, cmd *cobra.Command, id string) (*stripe.Invoice, error)
	}{
		{"finalize", "Finalize a draft invoice", func(c *stripe.Client, cmd *cobra.Command, id string) (*stripe.Invoice, error) {
			return c.Invoices.Finalize(cmd.Context(), id, requestOptions(cmd)...)
		}},
		{"pay", "Pay an open invoice", func(c *stripe.Client, cmd *cobra.Command, id string) (*stripe.Invoice, error) {
			return c.Invoices.Pay(cmd.Context(), id, requestOptions(cmd)...)
		}},
		{"void", "Void a finalized invoice", func(c *stripe.Client, cmd *cobra.Command, id string) (*stripe.Invoice, error) {
			return c.Invoices.Void(cmd.Context(), id, requestOptions(cmd)...)
		}},
		{"send", "Email an invoice to the customer", func(c *stripe.Client, cmd *cobra.Command, id string) (*stripe.Invoice, error) {
			return c.Invoices.Send(cmd.Context(), id, requestOptions(cmd)...)
		}},
	}
	for _, a := range actions {
		actionCmd := &cobra.Command{
			Use:   a.use + " <invoice-id>",
			Short: a.short,
			Args:  cobra.ExactArgs(1),
			RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
				in, err := a.run(c, cmd, args[0])
				if err != nil {
					return err
				}
				return render(cmd, in, invoicesView([]stripe.Invoice{*in}))
			}),
		}
		actionCmd.Flags().String("idempotency-key", "", "explicit Idempotency-Key (default: random)")
		invoicesCmd.AddCommand(actionCmd)
	}
	return invoicesCmd
}

// --- payment intents ---

func paymentIntentsView(items []stripe.PaymentIntent) *view {
	v := newView("ID", "AMOUNT", "RECEIVED", "STATUS", "CUSTOMER", "CREATED")
	for _, pi := range items {
		v.add(pi.ID, amountCell(pi.Amount, pi.Currency), amountCell(pi.AmountReceived, pi.Currency),
			pi.Status, deref(pi.Customer), unixCell(pi.Created))
	}
	return v
}

func newStripePaymentIntentsCmd() *cobra.Command {
	piCmd := &cobra.Command{
		Use:     "payment-intents",
		Aliases: []string{"pi"},
		Short:   "Create and manage payment intents",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List payment intents",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			customer, _ := cmd.Flags().GetString("customer")
			params := stripe.PaymentIntentListParams{ListParams: stripeListParams(cmd), Customer: customer}
			if listAllFlag(cmd) {
				items, err := c.PaymentIntents.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, paymentIntentsView(items))
			}
			list, err := c.PaymentIntents.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, list, paymentIntentsView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("customer", "", "filter by customer")

	getCmd := &cobra.Command{
		Use:   "get <payment-intent-id>",
		Short: "Get a payment intent",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			pi, err := c.PaymentIntents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, pi, paymentIntentsView([]stripe.PaymentIntent{*pi}))
		}),
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a payment intent",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			amount, _ := cmd.Flags().GetInt64("amount")
			currency, _ := cmd.Flags().GetString("currency")
			customer, _ := cmd.Flags().GetString("customer")
			description, _ := cmd.Flags().GetString("description")
			method, _ := cmd.Flags().GetString("payment-method")
			types, _ := cmd.Flags().GetStringSlice("payment-method-types")
			capture, _ := cmd.Flags().GetString("capture-method")
			confirm, _ := cmd.Flags().GetBool("confirm")
			metadata, err := metadataFlag(cmd)
			if err != nil {
				return err
			}
			if amount <= 0 {
				return fmt.Errorf("--amount must be positive: %w", domain.ErrInvalidInput)
			}
			pi, err := c.PaymentIntents.Create(cmd.Context(), stripe.PaymentIntentParams{
				Amount:             amount,
				Currency:           currency,
				Customer:           customer,
				Description:        description,
				PaymentMethod:      method,
				PaymentMethodTypes: types,
				CaptureMethod:      capture,
				Confirm:            confirm,
				Metadata:           metadata,
			}, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, pi, paymentIntentsView([]stripe.PaymentIntent{*pi}))
		}),
	}
	createCmd.Flags().Int64("amount", 0, "amount in minor units")
	createCmd.Flags().String("currency", "usd", "three-letter currency code")
	createCmd.Flags().String("customer", "", "customer ID")
	createCmd.Flags().String("description", "", "description")
	createCmd.Flags().String("payment-method", "", "payment method ID")
	createCmd.Flags().StringSlice("payment-method-types", nil, "allowed payment method types")
	createCmd.Flags().String("capture-method", "", "automatic or manual")
	createCmd.Flags().Bool("confirm", false, "confirm immediately")
	addWriteFlags(createCmd)

	confirmCmd := &cobra.Command{
		Use:   "confirm <payment-intent-id>",
		Short: "Confirm a payment intent",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			method, _ := cmd.Flags().GetString("payment-method")
			pi, err := c.PaymentIntents.Confirm(cmd.Context(), args[0], method, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, pi, paymentIntentsView([]stripe.PaymentIntent{*pi}))
		}),
	}
	confirmCmd.Flags().String("payment-method", "", "payment method ID")
	confirmCmd.Flags().String("idempotency-key", "", "explicit Idempotency-Key (default: random)")

	captureCmd := &cobra.Command{
		Use:   "capture <payment-intent-id>",
		Short: "Capture an authorised payment",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			amount, _ := cmd.Flags().GetInt64("amount")
			pi, err := c.PaymentIntents.Capture(cmd.Context(), args[0], amount, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, pi, paymentIntentsView([]stripe.PaymentIntent{*pi}))
		}),
	}
	captureCmd.Flags().Int64("amount", 0, "amount to capture (default: all)")
	captureCmd.Flags().String("idempotency-key", "", "explicit Idempotency-Key (default: random)")

	cancelCmd := &cobra.Command{
		Use:   "cancel <payment-intent-id>",
		Short: "Cancel a payment intent",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			pi, err := c.PaymentIntents.Cancel(cmd.Context(), args[0], reason, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, pi, paymentIntentsView([]stripe.PaymentIntent{*pi}))
		}),
	}
	cancelCmd.Flags().String("reason", "", "duplicate, fraudulent, requested_by_customer or abandoned")
	cancelCmd.Flags().String("idempotency-key", "", "explicit Idempotency-Key (default: random)")

	piCmd.AddCommand(listCmd, getCmd, createCmd, confirmCmd, captureCmd, cancelCmd)
	return piCmd
}

// --- subscriptions ---

func subscriptionsView(items []stripe.Subscription) *view {
	v := newView("ID", "CUSTOMER", "STATUS", "PERIOD END", "CANCEL AT END")
	for _, s := range items {
		v.add(s.ID, s.Customer, s.Status, unixCell(s.CurrentPeriodEnd), boolCell(s.CancelAtPeriodEnd))
	}
	return v
}

// subscriptionItems reads "price[:quantity]" entries.
func subscriptionItems(entries []string) ([]stripe.SubscriptionItemParams, error) {
	items := make([]stripe.SubscriptionItemParams, 0, len(entries))
	for _, e := range entries {
		price, qty, ok := strings.Cut(e, ":")
		item := stripe.SubscriptionItemParams{Price: price}
		if ok {
			n, err := strconv.ParseInt(qty, 10, 64)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("invalid quantity in %q: %w", e, domain.ErrInvalidInput)
			}
			item.Quantity = n
		}
		items = append(items, item)
	}
	return items, nil
}

func newStripeSubscriptionsCmd() *cobra.Command {
	subsCmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "Manage subscriptions",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			customer, _ := cmd.Flags().GetString("customer")
			price, _ := cmd.Flags().GetString("price")
			status, _ := cmd.Flags().GetString("status")
			params := stripe.SubscriptionListParams{
				ListParams: stripeListParams(cmd), Customer: customer, Price: price, Status: status,
			}
			if listAllFlag(cmd) {
				items, err := c.Subscriptions.ListAll(cmd.Context(), params)
				if err != nil {
					return err
				}
				return render(cmd, items, subscriptionsView(items))
			}
			list, err := c.Subscriptions.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return render(cmd, list, subscriptionsView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("customer", "", "filter by customer")
	listCmd.Flags().String("price", "", "filter by price")
	listCmd.Flags().String("status", "", "filter by status (all includes canceled)")

	getCmd := &cobra.Command{
		Use:   "get <subscription-id>",
		Short: "Get a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			s, err := c.Subscriptions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, s, subscriptionsView([]stripe.Subscription{*s}))
		}),
	}

	subscriptionParams := func(cmd *cobra.Command) (stripe.SubscriptionParams, error) {
		customer, _ := cmd.Flags().GetString("customer")
		entries, _ := cmd.Flags().GetStringArray("item")
		trial, _ := cmd.Flags().GetInt("trial-days")
		proration, _ := cmd.Flags().GetString("proration-behavior")
		items, err := subscriptionItems(entries)
		if err != nil {
			return stripe.SubscriptionParams{}, err
		}
		metadata, err := metadataFlag(cmd)
		if err != nil {
			return stripe.SubscriptionParams{}, err
		}
		return stripe.SubscriptionParams{
			Customer:          customer,
			Items:             items,
			TrialPeriodDays:   trial,
			CancelAtPeriodEnd: optionalBool(cmd, "cancel-at-period-end"),
			ProrationBehavior: proration,
			Metadata:          metadata,
		}, nil
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Subscribe a customer to prices",
		Long: `Subscribe a customer. --item takes price[:quantity]:
  connect stripe subscriptions create --customer cus_123 --item price_abc --item price_seat:5`,
		Args: cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			params, err := subscriptionParams(cmd)
			if err != nil {
				return err
			}
			if params.Customer == "" || len(params.Items) == 0 {
				return fmt.Errorf("--customer and at least one --item are required: %w", domain.ErrInvalidInput)
			}
			s, err := c.Subscriptions.Create(cmd.Context(), params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, s, subscriptionsView([]stripe.Subscription{*s}))
		}),
	}

	updateCmd := &cobra.Command{
		Use:   "update <subscription-id>",
		Short: "Update a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			params, err := subscriptionParams(cmd)
			if err != nil {
				return err
			}
			s, err := c.Subscriptions.Update(cmd.Context(), args[0], params, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, s, subscriptionsView([]stripe.Subscription{*s}))
		}),
	}
	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		cmd.Flags().String("customer", "", "customer ID")
		cmd.Flags().StringArray("item", nil, "price[:quantity] (repeatable)")
		cmd.Flags().Int("trial-days", 0, "trial period in days")
		cmd.Flags().Bool("cancel-at-period-end", false, "cancel when the current period ends")
		cmd.Flags().String("proration-behavior", "", "create_prorations, none or always_invoice")
		addWriteFlags(cmd)
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <subscription-id>",
		Short: "Cancel a subscription immediately",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			s, err := c.Subscriptions.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, s, subscriptionsView([]stripe.Subscription{*s}))
		}),
	}

	subsCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, cancelCmd)
	return subsCmd
}

// --- refunds, charges, balance, events ---

func refundsView(items []stripe.Refund) *view {
	v := newView("ID", "AMOUNT", "CHARGE", "PAYMENT INTENT", "STATUS", "CREATED")
	for _, r := range items {
		v.add(r.ID, amountCell(r.Amount, r.Currency), r.Charge, r.PaymentIntent, r.Status, unixCell(r.Created))
	}
	return v
}

func newStripeRefundsCmd() *cobra.Command {
	refundsCmd := &cobra.Command{
		Use:   "refunds",
		Short: "List and create refunds",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List refunds",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			charge, _ := cmd.Flags().GetString("charge")
			pi, _ := cmd.Flags().GetString("payment-intent")
			list, err := c.Refunds.List(cmd.Context(), stripe.RefundListParams{
				ListParams: stripeListParams(cmd), Charge: charge, PaymentIntent: pi,
			})
			if err != nil {
				return err
			}
			return render(cmd, list, refundsView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("charge", "", "filter by charge")
	listCmd.Flags().String("payment-intent", "", "filter by payment intent")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Refund a charge or payment intent",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			charge, _ := cmd.Flags().GetString("charge")
			pi, _ := cmd.Flags().GetString("payment-intent")
			amount, _ := cmd.Flags().GetInt64("amount")
			reason, _ := cmd.Flags().GetString("reason")
			metadata, err := metadataFlag(cmd)
			if err != nil {
				return err
			}
			r, err := c.Refunds.Create(cmd.Context(), stripe.RefundParams{
				Charge: charge, PaymentIntent: pi, Amount: amount, Reason: reason, Metadata: metadata,
			}, requestOptions(cmd)...)
			if err != nil {
				return err
			}
			return render(cmd, r, refundsView([]stripe.Refund{*r}))
		}),
	}
	createCmd.Flags().String("charge", "", "charge to refund")
	createCmd.Flags().String("payment-intent", "", "payment intent to refund")
	createCmd.Flags().Int64("amount", 0, "partial amount in minor units (default: all)")
	createCmd.Flags().String("reason", "", "duplicate, fraudulent or requested_by_customer")
	addWriteFlags(createCmd)

	refundsCmd.AddCommand(listCmd, createCmd)
	return refundsCmd
}

func chargesView(items []stripe.Charge) *view {
	v := newView("ID", "AMOUNT", "REFUNDED", "STATUS", "CUSTOMER", "PAID")
	for _, ch := range items {
		v.add(ch.ID, amountCell(ch.Amount, ch.Currency), amountCell(ch.AmountRefunded, ch.Currency),
			ch.Status, deref(ch.Customer), boolCell(ch.Paid))
	}
	return v
}

func newStripeChargesCmd() *cobra.Command {
	chargesCmd := &cobra.Command{
		Use:   "charges",
		Short: "Inspect charges",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List charges",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			customer, _ := cmd.Flags().GetString("customer")
			pi, _ := cmd.Flags().GetString("payment-intent")
			list, err := c.Charges.List(cmd.Context(), stripe.ChargeListParams{
				ListParams: stripeListParams(cmd), Customer: customer, PaymentIntent: pi,
			})
			if err != nil {
				return err
			}
			return render(cmd, list, chargesView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("customer", "", "filter by customer")
	listCmd.Flags().String("payment-intent", "", "filter by payment intent")

	getCmd := &cobra.Command{
		Use:   "get <charge-id>",
		Short: "Get a charge",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			ch, err := c.Charges.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, ch, chargesView([]stripe.Charge{*ch}))
		}),
	}

	chargesCmd.AddCommand(listCmd, getCmd)
	return chargesCmd
}

func newStripeBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the account balance",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			bal, err := c.Balance.Get(cmd.Context())
			if err != nil {
				return err
			}
			v := newView("STATE", "AMOUNT")
			for _, a := range bal.Available {
				v.add("available", amountCell(a.Amount, a.Currency))
			}
			for _, a := range bal.Pending {
				v.add("pending", amountCell(a.Amount, a.Currency))
			}
			return render(cmd, bal, v)
		}),
	}
}

func newStripeEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect account events",
	}
	eventsView := func(items []stripe.Event) *view {
		v := newView("ID", "TYPE", "CREATED", "LIVE")
		for _, e := range items {
			v.add(e.ID, e.Type, unixCell(e.Created), boolCell(e.Livemode))
		}
		return v
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, _ []string) error {
			typ, _ := cmd.Flags().GetString("type")
			list, err := c.Events.List(cmd.Context(), stripe.EventListParams{ListParams: stripeListParams(cmd), Type: typ})
			if err != nil {
				return err
			}
			return render(cmd, list, eventsView(list.Data))
		}),
	}
	addStripeListFlags(listCmd)
	listCmd.Flags().String("type", "", "event type, e.g. invoice.paid or customer.*")

	getCmd := &cobra.Command{
		Use:   "get <event-id>",
		Short: "Get an event",
		Args:  cobra.ExactArgs(1),
		RunE: stripeRun(func(cmd *cobra.Command, c *stripe.Client, args []string) error {
			e, err := c.Events.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd, e, eventsView([]stripe.Event{*e}))
		}),
	}

	eventsCmd.AddCommand(listCmd, getCmd)
	return eventsCmd
}
