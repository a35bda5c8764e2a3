package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"uctarna/backend/internal/domain"
)

// closingReportHTMLTmpl renders the emailed closing document. All
// user-controlled fields are auto-escaped by html/template.
var closingReportHTMLTmpl = template.Must(template.New("closing-report").Funcs(template.FuncMap{
	"czk": func(v float64) string { return fmt.Sprintf("%.2f Kč", v) },
	"eur": func(v float64) string { return fmt.Sprintf("%.2f €", v) },
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Uzávěrka {{.StoreName}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Uzávěrka — {{.StoreName}}</h2>
  <p>Období: {{.Period}} ({{.From.Format "2006-01-02"}} až {{.To.Format "2006-01-02"}})</p>
  <p>Prodejů: {{.SaleCount}} | Zákazníků: {{.CustomerCount}} | Vratek: {{.RefundCount}}</p>
  <p>Tržba: {{czk .TotalRevenue}} | Náklady: {{czk .TotalCost}} | Zisk: {{czk .TotalProfit}} | Slevy: {{czk .TotalDiscounts}}</p>
  <p>Hotově: {{czk .CashRevenue}} | Kartou: {{czk .CardRevenue}} | Vráceno: {{czk .RefundedTotal}}</p>
  <p>Pokladna CZK: {{czk .RetainedCZK}} | Přijato EUR: {{eur .CollectedEUR}}</p>

  <h3>Produkty</h3>
  <table>
    <thead><tr><th>Produkt</th><th>Ks</th><th>Tržba</th><th>Náklady</th><th>Zisk</th></tr></thead>
    <tbody>{{range .Products}}<tr><td>{{.ProductName}}</td><td style="text-align:right;">{{.Quantity}}</td><td style="text-align:right;">{{czk .Revenue}}</td><td style="text-align:right;">{{czk .Cost}}</td><td style="text-align:right;">{{czk .Profit}}</td></tr>{{end}}</tbody>
  </table>

  <p style="margin-top:16px;font-size:11px;color:#888;">Vygenerováno {{.GeneratedAt.Format "2006-01-02 15:04:05"}} UTC</p>
</body>
</html>
`))

func ToHTML(report *domain.ClosingReport) string {
	var buf bytes.Buffer
	if err := closingReportHTMLTmpl.Execute(&buf, report); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

func ToText(report *domain.ClosingReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Uzávěrka — %s\n", report.StoreName)
	fmt.Fprintf(&b, "Období: %s (%s až %s)\n\n", report.Period,
		report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))
	fmt.Fprintf(&b, "Prodejů: %d, zákazníků: %d, vratek: %d\n",
		report.SaleCount, report.CustomerCount, report.RefundCount)
	fmt.Fprintf(&b, "Tržba: %.2f Kč, náklady: %.2f Kč, zisk: %.2f Kč, slevy: %.2f Kč\n",
		report.TotalRevenue, report.TotalCost, report.TotalProfit, report.TotalDiscounts)
	fmt.Fprintf(&b, "Hotově: %.2f Kč, kartou: %.2f Kč, vráceno: %.2f Kč\n",
		report.CashRevenue, report.CardRevenue, report.RefundedTotal)
	fmt.Fprintf(&b, "Pokladna CZK: %.2f Kč, přijato EUR: %.2f €\n\n", report.RetainedCZK, report.CollectedEUR)
	for _, row := range report.Products {
		fmt.Fprintf(&b, "%s: %d ks, tržba %.2f Kč, zisk %.2f Kč\n",
			row.ProductName, row.Quantity, row.Revenue, row.Profit)
	}
	return b.String()
}

func ToCSV(report *domain.ClosingReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,store_id,%s", report.StoreID),
		fmt.Sprintf("summary,period,%s", report.Period),
		fmt.Sprintf("summary,from,%s", report.From.Format("2006-01-02")),
		fmt.Sprintf("summary,to,%s", report.To.Format("2006-01-02")),
		fmt.Sprintf("summary,sale_count,%d", report.SaleCount),
		fmt.Sprintf("summary,refund_count,%d", report.RefundCount),
		fmt.Sprintf("summary,customer_count,%d", report.CustomerCount),
		fmt.Sprintf("summary,total_revenue,%.2f", report.TotalRevenue),
		fmt.Sprintf("summary,total_cost,%.2f", report.TotalCost),
		fmt.Sprintf("summary,total_profit,%.2f", report.TotalProfit),
		fmt.Sprintf("summary,total_discounts,%.2f", report.TotalDiscounts),
		fmt.Sprintf("summary,cash_revenue,%.2f", report.CashRevenue),
		fmt.Sprintf("summary,card_revenue,%.2f", report.CardRevenue),
		fmt.Sprintf("summary,refunded_total,%.2f", report.RefundedTotal),
		fmt.Sprintf("summary,retained_czk,%.2f", report.RetainedCZK),
		fmt.Sprintf("summary,collected_eur,%.2f", report.CollectedEUR),
	}
	for _, row := range report.Products {
		name := strings.ReplaceAll(row.ProductName, ",", " ")
		lines = append(lines, fmt.Sprintf("product,%s_quantity,%d", name, row.Quantity))
		lines = append(lines, fmt.Sprintf("product,%s_revenue,%.2f", name, row.Revenue))
		lines = append(lines, fmt.Sprintf("product,%s_profit,%.2f", name, row.Profit))
	}
	return strings.Join(lines, "\n") + "\n"
}

func Subject(report *domain.ClosingReport) string {
	return fmt.Sprintf("Uzávěrka %s — %s (%s)", report.StoreName,
		report.From.Format("2006-01-02"), report.Period)
}
