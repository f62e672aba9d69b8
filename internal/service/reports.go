package service

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
)

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.repo.DashboardStats(ctx, s.lowStockThreshold)
}

func (s *Service) SalesChart(ctx context.Context, days int) (domain.ChartSeries, error) {
	if days < 1 {
		days = 30
	}
	from := time.Now().UTC().AddDate(0, 0, -(days - 1))
	return s.repo.SalesSeries(ctx, from, days)
}

func (s *Service) ProfitChart(ctx context.Context, days int) (domain.ChartSeries, error) {
	if days < 1 {
		days = 30
	}
	from := time.Now().UTC().AddDate(0, 0, -(days - 1))
	return s.repo.ProfitSeries(ctx, from, days)
}

func (s *Service) CategorySales(ctx context.Context) ([]domain.CategorySales, error) {
	return s.repo.CategorySales(ctx)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.OrderID}}</title>
<style>
body { font-family: monospace; width: 320px; margin: 0 auto; }
table { width: 100%; border-collapse: collapse; }
td { padding: 2px 0; }
td.qty, td.sum { text-align: right; white-space: nowrap; }
.total { border-top: 1px dashed #000; font-weight: bold; }
.footer { text-align: center; margin-top: 12px; }
</style>
</head>
<body>
<h3>Receipt {{.OrderID}}</h3>
<p>{{.CreatedAt}}</p>
<table>
{{range .Lines}}<tr><td>{{.Name}}</td><td class="qty">{{.Quantity}}</td><td class="sum">{{.Subtotal}}</td></tr>
{{end}}<tr class="total"><td colspan="2">Total</td><td class="sum">{{.Total}}</td></tr>
</table>
<p class="footer">Thank you for your purchase!</p>
</body>
</html>
`))

type receiptLine struct {
	Name     string
	Quantity string
	Subtotal string
}

type receiptData struct {
	OrderID   string
	CreatedAt string
	Lines     []receiptLine
	Total     string
}

// ReceiptHTML renders a printable receipt for an order.
func (s *Service) ReceiptHTML(ctx context.Context, orderID string) ([]byte, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	data := receiptData{
		OrderID:   order.ID,
		CreatedAt: order.CreatedAt.Format("2006-01-02 15:04"),
		Total:     order.TotalPrice.StringFixed(2),
		Lines:     make([]receiptLine, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		name := item.ProductID
		if p, ok := products[item.ProductID]; ok {
			name = p.Name
		}
		data.Lines = append(data.Lines, receiptLine{
			Name:     name,
			Quantity: item.Quantity.String(),
			Subtotal: item.Quantity.Mul(item.Price).StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
