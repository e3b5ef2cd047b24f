// Command storefront is a terminal shop over the ShopMart API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"shopmart/pkg/checkout"
	"shopmart/pkg/client"
)

func main() {
	baseURL := flag.String("url", getenv("SHOPMART_URL", "http://localhost:8443"), "API base URL")
	runCmd := flag.String("run", "", "run once without the UI: list|checkout")
	cartJSON := flag.String("cart", "", `cart for -run checkout, e.g. {"id":[2]}`)
	flag.Parse()

	api := client.New(*baseURL)

	if *runCmd != "" {
		if err := runOnce(api, *runCmd, *cartJSON); err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(newModel(api))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func runOnce(api *client.Client, cmd, cartJSON string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	switch cmd {
	case "list":
		items, err := api.ListItems(ctx)
		if err != nil {
			return err
		}
		for _, it := range items {
			fmt.Printf("%s\t%s\t%.2f\t%d\t%s\n", it.ID, it.ItemName, it.Price, it.Stock, it.Category)
		}
		return nil
	case "checkout":
		c, err := checkout.DecodeCart(strings.NewReader(cartJSON))
		if err != nil {
			return err
		}
		res, err := api.Checkout(ctx, c, uuid.NewString())
		if err != nil {
			return err
		}
		fmt.Printf("Checkout OK, %d items in catalog\n", len(res.Items))
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
