package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/nazeru/checkout-lab-go/internal/shop/checkout"
	"github.com/nazeru/checkout-lab-go/internal/shop/domain"
	"github.com/nazeru/checkout-lab-go/internal/shop/report"
)

type scenario struct {
	Name        string
	Description string
	Run         func(out *bytes.Buffer)
}

type model struct {
	scenarios []scenario
	selected  int
	output    string
	status    string
}

func initialModel() model {
	return model{
		scenarios: scenarios(),
		status:    "Ready",
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(m.scenarios)-1 {
				m.selected++
			}
		case "enter":
			m.status = "Running..."
			return m, runScenarioCmd(m.scenarios[m.selected])
		}
	case scenarioResult:
		m.status = msg.status
		m.output = msg.output
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "checkout-lab-go CLI")
	fmt.Fprintln(b, "")
	fmt.Fprintln(b, "Scenarios:")
	for i, scn := range m.scenarios {
		marker := " "
		if i == m.selected {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %s - %s\n", marker, scn.Name, scn.Description)
	}
	fmt.Fprintln(b, "")
	fmt.Fprintf(b, "Status: %s\n", m.status)
	if m.output != "" {
		fmt.Fprintln(b, "")
		fmt.Fprint(b, m.output)
	}
	fmt.Fprintln(b, "\nControls: up/down select scenario, enter to run, q to quit")
	return b.String()
}

type scenarioResult struct {
	status string
	output string
}

func runScenarioCmd(scn scenario) tea.Cmd {
	return func() tea.Msg {
		out := &bytes.Buffer{}
		scn.Run(out)
		return scenarioResult{status: fmt.Sprintf("Finished: %s", scn.Name), output: out.String()}
	}
}

// sampleCatalog rebuilds the demo products fresh for every run so
// scenarios never see each other's stock mutations.
func sampleCatalog() (cheese, biscuits, tv, scratchCard *domain.Product) {
	cheese = domain.NewExpirableShippable("Cheese", decimal.NewFromInt(100), 10, false, decimal.NewFromFloat(0.2))
	biscuits = domain.NewExpirableShippable("Biscuits", decimal.NewFromInt(150), 20, false, decimal.NewFromFloat(0.7))
	tv = domain.NewShippable("TV", decimal.NewFromInt(1500), 1, decimal.NewFromFloat(10.0))
	scratchCard = domain.NewSimple("Mobile Scratch Card", decimal.NewFromInt(5), 2)
	return
}

func newEngine(out *bytes.Buffer) *checkout.Engine {
	printer := report.NewConsolePrinter(out)
	return &checkout.Engine{Shipments: printer, Receipts: printer}
}

func scenarios() []scenario {
	return []scenario{
		{
			Name:        "valid-order",
			Description: "Cheese x2, Biscuits x1, TV x1 on a 5000 balance",
			Run: func(out *bytes.Buffer) {
				cheese, biscuits, tv, _ := sampleCatalog()
				alice := domain.NewCustomer("Alice", decimal.NewFromInt(5000))
				engine := newEngine(out)
				fail := func(err error) { fmt.Fprintf(out, "Checkout error: %s\n", err) }
				if err := alice.Cart().AddItem(cheese, 2); err != nil {
					fail(err)
					return
				}
				if err := alice.Cart().AddItem(biscuits, 1); err != nil {
					fail(err)
					return
				}
				if err := alice.Cart().AddItem(tv, 1); err != nil {
					fail(err)
					return
				}
				if _, err := engine.Checkout(context.Background(), alice); err != nil {
					fail(err)
					return
				}
				fmt.Fprintf(out, "Remaining balance: %s\n", alice.Balance())
			},
		},
		{
			Name:        "stock-exceeded",
			Description: "Cart add beyond available TV stock",
			Run: func(out *bytes.Buffer) {
				_, _, tv, _ := sampleCatalog()
				bob := domain.NewCustomer("Bob", decimal.NewFromInt(5000))
				if err := bob.Cart().AddItem(tv, 3); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
				}
			},
		},
		{
			Name:        "race-out-of-stock",
			Description: "Another checkout drains the cheese first",
			Run: func(out *bytes.Buffer) {
				cheese, _, _, _ := sampleCatalog()
				engine := newEngine(out)
				charlie := domain.NewCustomer("Charlie", decimal.NewFromInt(5000))
				david := domain.NewCustomer("David", decimal.NewFromInt(1000))
				if err := charlie.Cart().AddItem(cheese, 5); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
					return
				}
				if err := david.Cart().AddItem(cheese, 6); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
					return
				}
				if _, err := engine.Checkout(context.Background(), david); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
					return
				}
				if _, err := engine.Checkout(context.Background(), charlie); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
				}
			},
		},
		{
			Name:        "expired-product",
			Description: "Cheese goes stale between add and checkout",
			Run: func(out *bytes.Buffer) {
				cheese, _, _, _ := sampleCatalog()
				engine := newEngine(out)
				erin := domain.NewCustomer("Erin", decimal.NewFromInt(5000))
				if err := erin.Cart().AddItem(cheese, 2); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
					return
				}
				cheese.SetExpired(true)
				if _, err := engine.Checkout(context.Background(), erin); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
				}
			},
		},
		{
			Name:        "empty-cart",
			Description: "Checkout with nothing in the cart",
			Run: func(out *bytes.Buffer) {
				engine := newEngine(out)
				frank := domain.NewCustomer("Frank", decimal.NewFromInt(100))
				if _, err := engine.Checkout(context.Background(), frank); err != nil {
					fmt.Fprintf(out, "Checkout error: %s\n", err)
				}
			},
		},
	}
}

func main() {
	runCmd := flag.String("run", "", "run scenario headless: valid-order|stock-exceeded|race-out-of-stock|expired-product|empty-cart")
	flag.Parse()

	if *runCmd != "" {
		for _, scn := range scenarios() {
			if scn.Name == *runCmd {
				out := &bytes.Buffer{}
				scn.Run(out)
				fmt.Print(out.String())
				return
			}
		}
		fmt.Printf("unknown scenario: %s\n", *runCmd)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
