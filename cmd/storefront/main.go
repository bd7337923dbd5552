package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/wichananm65/earthly-storefront/internal/cart"
	"github.com/wichananm65/earthly-storefront/internal/checkout"
	"github.com/wichananm65/earthly-storefront/internal/config"
	"github.com/wichananm65/earthly-storefront/internal/logging"
	"github.com/wichananm65/earthly-storefront/internal/money"
	"github.com/wichananm65/earthly-storefront/internal/product"
	"github.com/wichananm65/earthly-storefront/internal/storefront"
)

const help = `commands:
  list                         show the catalogue
  show <id>                    show one product
  add <id>                     add one unit to the cart
  qty <id> <n>                 set a line quantity (0 removes)
  rm <id>                      remove a line
  cart                         show the cart
  checkout                     open the checkout form
  details name|email|phone|address
  submit                       create the order and open payment
  pay <payment_id> [signature] complete the open payment
  decline [reason]             fail the open payment
  dismiss                      close the payment widget
  retry                        retry verification of the last payment
  close                        close the checkout form
  state                        print the checkout state
  quit`

type shop struct {
	out     io.Writer
	client  *storefront.Client
	gateway *storefront.ConsoleGateway
	cart    *cart.Store
	co      *checkout.Coordinator
}

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// the sandbox provider signs with the shared key secret
	var secret string
	if cfg.PaymentProvider == config.ProviderSandbox {
		secret = cfg.RazorpayKeySecret
	}

	s := &shop{
		out:     os.Stdout,
		client:  storefront.NewClient(cfg.BackendURL, cfg.HTTPTimeout),
		gateway: storefront.NewConsoleGateway(os.Stdout, secret),
		cart:    cart.New(),
	}
	s.co = checkout.NewCoordinator(s.cart, s.client, s.gateway, checkout.Options{
		Currency:       cfg.Currency,
		StoreName:      cfg.StoreName,
		Description:    cfg.StoreDescription,
		ThemeColor:     cfg.ThemeColor,
		PaymentTimeout: cfg.PaymentTimeout,
	})
	s.co.OnChange(s.printState)

	fmt.Fprintf(s.out, "%s (%s)\n%s\n", cfg.StoreName, cfg.BackendURL, help)
	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(s.out, "> ")
		if !in.Scan() {
			return
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return
		}
		if err := s.run(ctx, fields[0], fields[1:], in.Text()); err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
	}
}

func (s *shop) run(ctx context.Context, cmd string, args []string, line string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, help)
	case "list":
		products, err := s.client.ListProducts(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Fprintf(s.out, "%-16s %-40s %10s\n", p.ID, p.Name, p.Price.StringFixed(2))
		}
	case "show":
		p, err := s.product(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s\n  %s\n  price %s, stock %d\n", p.Name, p.Description, p.Price.StringFixed(2), p.Stock)
		for _, f := range p.Features {
			fmt.Fprintln(s.out, "  -", f)
		}
	case "add":
		p, err := s.product(ctx, args)
		if err != nil {
			return err
		}
		if err := s.cart.Add(p); err != nil {
			return err
		}
		s.printCart()
	case "qty":
		if len(args) != 2 {
			return errors.New("usage: qty <id> <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		s.cart.SetQuantity(args[0], n)
		s.printCart()
	case "rm":
		if len(args) != 1 {
			return errors.New("usage: rm <id>")
		}
		s.cart.Remove(args[0])
		s.printCart()
	case "cart":
		s.printCart()
	case "checkout":
		return s.co.Open()
	case "details":
		parts := strings.Split(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "details")), "|")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		return s.co.SetDetails(checkout.CustomerDetails{
			Name:    strings.TrimSpace(parts[0]),
			Email:   strings.TrimSpace(parts[1]),
			Phone:   strings.TrimSpace(parts[2]),
			Address: strings.TrimSpace(parts[3]),
		})
	case "submit":
		if err := s.co.Submit(ctx); err != nil {
			return errors.New(checkout.UserMessage(err))
		}
	case "pay":
		if len(args) == 0 {
			return errors.New("usage: pay <payment_id> [signature]")
		}
		var sig string
		if len(args) > 1 {
			sig = args[1]
		}
		return s.gateway.Pay(args[0], sig)
	case "decline":
		return s.gateway.Decline(strings.Join(args, " "))
	case "dismiss":
		if err := s.gateway.Dismiss(); err != nil {
			return err
		}
		return s.co.Cancel()
	case "retry":
		return s.co.RetryVerification(ctx)
	case "close":
		return s.co.Close()
	case "state":
		b, err := json.MarshalIndent(s.co.State(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, string(b))
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (s *shop) product(ctx context.Context, args []string) (product.Product, error) {
	if len(args) != 1 {
		return product.Product{}, errors.New("a product id is required")
	}
	return s.client.GetProduct(ctx, args[0])
}

func (s *shop) printCart() {
	if s.cart.Empty() {
		fmt.Fprintln(s.out, "cart is empty")
		return
	}
	for _, l := range s.cart.Lines() {
		fmt.Fprintf(s.out, "%-16s x%-3d %10s\n", l.Product.ID, l.Quantity, money.Format(l.SubtotalMinor()))
	}
	fmt.Fprintf(s.out, "%d items, total %s\n", s.cart.Count(), money.Format(s.cart.TotalMinor()))
}

func (s *shop) printState(st checkout.State) {
	entry := log.WithFields(log.Fields{"step": st.Step, "open": st.Open})
	if st.Error != "" {
		entry = entry.WithField("error", st.Error)
	}
	entry.Debug("checkout state")

	switch st.Step {
	case checkout.StepCompleted:
		fmt.Fprintf(s.out, "payment verified, order %s placed. Thank you!\n", st.LastOrderID)
	case checkout.StepFailed:
		fmt.Fprintln(s.out, st.Error)
	}
}
