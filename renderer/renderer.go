// Package renderer formats the irpf reports as markdown.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/irpf"
)

// unregistered is the section of the tickers missing from the ledger.
const unregistered = "NÃO CADASTRADO"

func sectionName(res irpf.Result) string {
	if res.Instance == nil {
		return unregistered
	}
	return res.Instance.Category.String()
}

// NegotiationMarkdown renders the positions of a negotiation report, one
// table per category, followed by the corporate events and the earnings.
func NegotiationMarkdown(rng irpf.Range, results []irpf.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Posição de %s a %s\n\n", rng.From, rng.To)
	if len(results) == 0 {
		fmt.Fprint(&b, "Nenhum ativo no período.\n")
		return b.String()
	}

	section := ""
	for i, res := range results {
		if name := sectionName(res); i == 0 || name != section {
			if i > 0 {
				fmt.Fprintln(&b)
			}
			section = name
			fmt.Fprintf(&b, "## %s\n\n", section)
			table(&b, "Ativo", "Quantidade", "Preço médio", "Custo", "Vendas", "Lucros", "Prejuízos")
		}
		a := res.Asset
		row(&b,
			res.Ticker,
			a.Buy.Quantity.String(),
			amount(a.Buy.AvgPrice()),
			amount(a.Buy.Total),
			amount(a.Sell.Total.Add(a.Sell.Fraction.Total)),
			a.Sell.Profits.SignedString(),
			a.Sell.Losses.SignedString(),
		)
	}
	fmt.Fprintln(&b)

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Eventos\n\n")
		table(w, "Data", "Ativo", "Evento", "Quantidade", "Valor")
		printed := false
		for _, res := range results {
			for _, ev := range res.Asset.Events {
				row(w, ev.Date.String(), res.Ticker, ev.Title, ev.Quantity.String(), amount(ev.Value))
				printed = true
			}
		}
		fmt.Fprintln(w)
		return printed
	})

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "## Rendimentos\n\n")
		table(w, "Ativo", "Tipo", "Créditos", "Débitos")
		printed := false
		for _, res := range results {
			for _, ev := range res.Asset.Credit.All() {
				row(w, res.Ticker, ev.Title, amount(ev.Value), "-")
				printed = true
			}
			for _, ev := range res.Asset.Debit.All() {
				row(w, res.Ticker, ev.Title, "-", amount(ev.Value))
				printed = true
			}
		}
		fmt.Fprintln(w)
		return printed
	})

	return b.String()
}

// StatsMarkdown renders the monthly stats of every category, then the year to
// date totals of the declaration groups.
func StatsMarkdown(stats *irpf.StatsReports) string {
	var b strings.Builder
	reports := stats.Reports()
	if len(reports) == 0 {
		fmt.Fprint(&b, "# Apuração\n\nNenhum mês apurado.\n")
		return b.String()
	}
	from := reports[0].Negotiation().Range().From
	to := reports[len(reports)-1].Negotiation().Range().To
	fmt.Fprintf(&b, "# Apuração de %s a %s\n\n", from, to)

	for _, report := range reports {
		fmt.Fprintf(&b, "## %s\n\n", report.Negotiation().Range().Identifier())
		table(&b, "Categoria", "Vendas", "Resultado", "Isento", "Prejuízo acumulado", "Base de cálculo", "Imposto", "Residual", "A pagar")
		for _, s := range report.Results() {
			row(&b,
				s.Category.String(),
				amount(s.Sell),
				s.Net().SignedString(),
				amount(s.ExemptProfit),
				amount(s.CumulativeLosses),
				amount(s.Taxes.Taxable),
				amount(s.Taxes.Value),
				amount(s.Taxes.Residual),
				amount(s.Taxes.Payable),
			)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprint(&b, "## Total\n\n")
	table(&b, "Grupo", "Vendas", "Lucros", "Prejuízos", "Imposto", "Pago", "Residual", "Patrimônio")
	for _, g := range stats.CompileGroups() {
		s := g.Stats
		row(&b,
			g.Name,
			amount(s.Sell),
			s.Profits.SignedString(),
			s.Losses.SignedString(),
			amount(s.Taxes.Value),
			amount(s.Taxes.Paid),
			amount(s.ResidualTaxes),
			amount(s.Patrimony),
		)
	}
	return b.String()
}

// TaxesMarkdown renders a list of tax records.
func TaxesMarkdown(records []irpf.TaxRecord) string {
	var b strings.Builder
	fmt.Fprint(&b, "# Impostos\n\n")
	table(&b, "Mês", "Categoria", "Ativo", "Valor", "Pago em", "Descrição", "Id")
	for _, t := range records {
		paidOn := "-"
		if t.Paid {
			paidOn = t.PaidOn.String()
		}
		row(&b, t.Date.Format("2006-01"), t.Category.String(), t.Ticker, amount(t.Value()), paidOn, t.Description, t.ID)
	}
	return b.String()
}
