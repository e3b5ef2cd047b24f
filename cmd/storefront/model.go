package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"shopmart/pkg/cart"
	"shopmart/pkg/checkout"
	"shopmart/pkg/client"
	"shopmart/pkg/item"
)

const requestTimeout = 5 * time.Second

type model struct {
	api  *client.Client
	cart *cart.Accumulator

	query     string
	searching bool
	category  int
	selected  int

	// idemKey identifies the current cart contents. It changes whenever the
	// cart does so a retried checkout replays instead of settling twice.
	idemKey string

	status string
	busy   bool
}

func newModel(api *client.Client) model {
	return model{
		api:    api,
		cart:   cart.New(nil),
		status: "Loading catalog...",
		busy:   true,
	}
}

type catalogLoaded struct {
	items []item.Item
	err   error
}

type checkoutDone struct {
	res client.CheckoutResult
	err error
}

type imageURL struct {
	id  string
	url string
	err error
}

func loadCatalogCmd(api *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		items, err := api.ListItems(ctx)
		return catalogLoaded{items: items, err: err}
	}
}

func checkoutCmd(api *client.Client, lines checkout.Cart, idemKey string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := api.Checkout(ctx, lines, idemKey)
		return checkoutDone{res: res, err: err}
	}
}

func imageURLCmd(api *client.Client, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		u, err := api.ImageURL(ctx, id)
		return imageURL{id: id, url: u, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return loadCatalogCmd(m.api)
}

func (m model) visible() []item.Item {
	cats := m.cart.Categories()
	return m.cart.Visible(m.query, cats[m.category%len(cats)])
}

func (m model) current() (item.Item, bool) {
	v := m.visible()
	if m.selected < 0 || m.selected >= len(v) {
		return item.Item{}, false
	}
	return v[m.selected], true
}

func (m *model) clampSelection() {
	n := len(m.visible())
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)

	case catalogLoaded:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Could not load catalog: %v", msg.err)
			return m, nil
		}
		m.cart.Replace(msg.items)
		m.idemKey = ""
		m.clampSelection()
		m.status = fmt.Sprintf("%d items", len(msg.items))

	case checkoutDone:
		m.busy = false
		switch {
		case errors.Is(msg.err, checkout.ErrInsufficientStock):
			m.status = "Not enough stock, reload with r"
		case msg.err != nil:
			m.status = fmt.Sprintf("Checkout failed: %v", msg.err)
		default:
			total := m.cart.Total().StringFixed(2)
			m.cart.Replace(msg.res.Items)
			m.idemKey = ""
			m.clampSelection()
			m.status = fmt.Sprintf("Checkout OK, paid $%s", total)
			if msg.res.Replayed {
				m.status += " (replayed)"
			}
		}

	case imageURL:
		if msg.err != nil {
			m.status = fmt.Sprintf("No image for %s: %v", msg.id, msg.err)
		} else {
			m.status = msg.url
		}
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
	case tea.KeyBackspace:
		if m.query != "" {
			r := []rune(m.query)
			m.query = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.query += string(msg.Runes)
	}
	m.clampSelection()
	return m, nil
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "/":
		m.searching = true
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < len(m.visible())-1 {
			m.selected++
		}
	case "left":
		n := len(m.cart.Categories())
		m.category = (m.category + n - 1) % n
		m.clampSelection()
	case "right":
		m.category = (m.category + 1) % len(m.cart.Categories())
		m.clampSelection()
	case "+", "a":
		if it, ok := m.current(); ok {
			if m.cart.Add(it.ID) {
				m.idemKey = ""
			} else {
				m.status = fmt.Sprintf("Only %d of %s in stock", it.Stock, it.ItemName)
			}
		}
	case "-", "x":
		if it, ok := m.current(); ok && m.cart.Remove(it.ID) {
			m.idemKey = ""
		}
	case "i":
		if it, ok := m.current(); ok {
			return m, imageURLCmd(m.api, it.ID)
		}
	case "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Loading catalog..."
		return m, loadCatalogCmd(m.api)
	case "c", "enter":
		if m.busy || m.cart.Empty() {
			return m, nil
		}
		if m.idemKey == "" {
			m.idemKey = uuid.NewString()
		}
		m.busy = true
		m.status = "Checking out..."
		return m, checkoutCmd(m.api, m.cart.Lines(), m.idemKey)
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "ShopMart")
	fmt.Fprintln(b, "")

	cats := m.cart.Categories()
	fmt.Fprint(b, "Category:")
	for i, c := range cats {
		if i == m.category%len(cats) {
			fmt.Fprintf(b, " [%s]", c)
		} else {
			fmt.Fprintf(b, " %s", c)
		}
	}
	fmt.Fprintln(b)

	cursor := ""
	if m.searching {
		cursor = "_"
	}
	fmt.Fprintf(b, "Search: %s%s\n\n", m.query, cursor)

	for i, it := range m.visible() {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-24s $%8.2f  stock %-4d in cart %d\n",
			marker, it.ItemName, it.Price, it.Stock, m.cart.Quantity(it.ID))
	}

	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Cart: %d lines, total $%s\n", len(m.cart.LineIDs()), m.cart.Total().StringFixed(2))
	fmt.Fprintf(b, "Status: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: up/down select, left/right category, / search, +/- cart, i image, c checkout, r reload, q quit")
	return b.String()
}
