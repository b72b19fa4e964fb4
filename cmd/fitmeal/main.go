// Command fitmeal is a terminal client: browse meals, keep a local cart and
// check out against the FitMeal API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ariefcatur/fitmeal/internal/cart"
	"github.com/ariefcatur/fitmeal/internal/catalog"
	"github.com/ariefcatur/fitmeal/internal/client"
	"github.com/joho/godotenv"
)

const usage = `usage: fitmeal [flags] <command>

commands:
  meals                      list the catalog
  cart list                  show the cart
  cart add <mealId> [qty]    add a meal (merges with an existing line)
  cart set <mealId> <qty>    set quantity; below 1 removes the line
  cart remove <mealId>       remove a line
  cart clear                 empty the cart
  checkout [-pay]            create an order from the cart; -pay opens a payment session

flags:
`

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("fitmeal", flag.ExitOnError)
	api := fs.String("api", getenv("FITMEAL_API", "http://localhost:8081"), "API base URL")
	user := fs.String("user", os.Getenv("FITMEAL_USER"), "external user id")
	token := fs.String("token", os.Getenv("FITMEAL_TOKEN"), "bearer token")
	cartPath := fs.String("cart", cart.DefaultPath(), "cart file")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := &app{api: client.New(*api, *token), user: *user, cartPath: *cartPath}
	if err := app.run(ctx, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

type app struct {
	api      *client.Client
	user     string
	cartPath string
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "meals":
		return a.meals(ctx)
	case "cart":
		return a.cart(ctx, args[1:])
	case "checkout":
		cf := flag.NewFlagSet("checkout", flag.ContinueOnError)
		pay := cf.Bool("pay", false, "start a payment session")
		if err := cf.Parse(args[1:]); err != nil {
			return errUsage
		}
		return a.checkout(ctx, *pay)
	}
	return errUsage
}

func (a *app) meals(ctx context.Context) error {
	meals, err := a.api.ListMeals(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tKCAL\tVEGAN")
	for _, m := range meals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", m.ID, m.Name, priceText(m), kcalText(m), m.IsVegan)
	}
	return tw.Flush()
}

func priceText(m catalog.Meal) string {
	if m.Price == nil {
		return "-"
	}
	return m.Price.String()
}

func kcalText(m catalog.Meal) string {
	if m.Calories == nil {
		return "-"
	}
	return strconv.Itoa(*m.Calories)
}

func (a *app) openCart() (*cart.Cart, error) {
	return cart.Open(&cart.FileStore{Path: a.cartPath})
}

func (a *app) cart(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	c, err := a.openCart()
	if err != nil {
		return err
	}
	switch args[0] {
	case "list":
	case "add":
		if len(args) < 2 {
			return errUsage
		}
		qty := 1
		if len(args) > 2 {
			if qty, err = strconv.Atoi(args[2]); err != nil {
				return errUsage
			}
		}
		item, err := a.lookup(ctx, args[1])
		if err != nil {
			return err
		}
		item.Quantity = qty
		if err := c.Add(item); err != nil {
			return err
		}
	case "set":
		if len(args) < 3 {
			return errUsage
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return errUsage
		}
		if err := c.UpdateQuantity(args[1], qty); err != nil {
			return err
		}
	case "remove":
		if len(args) < 2 {
			return errUsage
		}
		if err := c.Remove(args[1]); err != nil {
			return err
		}
	case "clear":
		if err := c.Clear(); err != nil {
			return err
		}
	default:
		return errUsage
	}
	return printCart(c)
}

// lookup resolves display name and price for a new cart line.
func (a *app) lookup(ctx context.Context, mealID string) (cart.Item, error) {
	meals, err := a.api.ListMeals(ctx)
	if err != nil {
		return cart.Item{}, err
	}
	for _, m := range meals {
		if m.ID == mealID {
			return cart.Item{MealID: m.ID, Name: m.Name, Price: m.PriceOrZero()}, nil
		}
	}
	return cart.Item{}, fmt.Errorf("meal %s not found", mealID)
}

func printCart(c *cart.Cart) error {
	items := c.Items()
	if len(items) == 0 {
		fmt.Println("cart is empty")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEAL\tNAME\tQTY\tPRICE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.MealID, it.Name, it.Quantity, it.Price)
	}
	fmt.Fprintf(tw, "\t\t%d\t%s\n", c.TotalItems(), c.TotalPrice())
	return tw.Flush()
}

func (a *app) checkout(ctx context.Context, pay bool) error {
	if a.user == "" {
		return errors.New("-user (or FITMEAL_USER) is required")
	}
	c, err := a.openCart()
	if err != nil {
		return err
	}
	o, err := cart.Checkout(ctx, c, a.api, a.user)
	if err != nil {
		return err
	}
	fmt.Printf("order %s created: %d item(s), total %s, status %s\n", o.ID, len(o.Items), o.Total, o.Status)
	if !pay {
		return nil
	}
	url, err := a.api.Checkout(ctx, o.ID)
	if err != nil {
		return err
	}
	fmt.Println("pay at:", url)
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
