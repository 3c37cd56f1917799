package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/domain/models"
	"shiptrack/internal/repositories"
	"shiptrack/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders the shipment statement PDF (shipment, ledger, balance).
type DocsService struct {
	Shipments ShipmentReader
	Clients   ClientReader
	Payments  PaymentStore
	RequestID string
	Loader    func(ctx context.Context, shipmentID int64) (statementData, error)
}

type statementData struct {
	Shipment models.Shipment
	Client   models.Client
	Payments []models.PaymentRecord
	Summary  models.LedgerSummary
}

// GenerateStatement returns the PDF bytes and a download filename.
func (s DocsService) GenerateStatement(ctx context.Context, shipmentID int64) ([]byte, string, error) {
	data, err := s.loadStatementData(ctx, shipmentID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_statement", fmt.Sprintf("shipment_id=%d", shipmentID))
	return buildStatementPDF(data, time.Now().UTC())
}

// GenerateClientStatement is the portal variant; other clients' shipments read as not found.
func (s DocsService) GenerateClientStatement(ctx context.Context, clientID, shipmentID int64) ([]byte, string, error) {
	data, err := s.loadStatementData(ctx, shipmentID)
	if err != nil {
		return nil, "", err
	}
	if data.Shipment.ClientID != clientID {
		return nil, "", notFoundShipment()
	}
	utils.LogEvent(s.RequestID, "docs", "generate_statement", fmt.Sprintf("shipment_id=%d client_id=%d", shipmentID, clientID))
	return buildStatementPDF(data, time.Now().UTC())
}

func (s DocsService) loadStatementData(ctx context.Context, shipmentID int64) (statementData, error) {
	if s.Loader != nil {
		return s.Loader(ctx, shipmentID)
	}
	var out statementData
	sh, err := s.shipments().GetByID(ctx, shipmentID)
	if err != nil {
		return out, err
	}
	payments, err := s.payments().ListByShipment(ctx, shipmentID)
	if err != nil {
		return out, err
	}
	out.Shipment = sh
	out.Payments = payments
	out.Summary = models.Summarize(sh, payments)

	// A missing client still renders; the header falls back to the id.
	if c, err := s.clients().GetByID(ctx, sh.ClientID); err == nil {
		out.Client = c
	}
	return out, nil
}

func (s DocsService) shipments() ShipmentReader {
	if s.Shipments != nil {
		return s.Shipments
	}
	return repositories.ShipmentRepository{}
}

func (s DocsService) clients() ClientReader {
	if s.Clients != nil {
		return s.Clients
	}
	return repositories.ClientRepository{}
}

func (s DocsService) payments() PaymentStore {
	if s.Payments != nil {
		return s.Payments
	}
	return repositories.PaymentRepository{}
}

func buildStatementPDF(d statementData, now time.Time) ([]byte, string, error) {
	sh := d.Shipment
	cur := string(sh.Currency)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Shipment Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SHIPMENT STATEMENT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Tracking No : "+sh.TrackingNumber)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Issued      : "+utils.FormatDateTime(now)+" UTC")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	clientName := safe(d.Client.Name, fmt.Sprintf("Client #%d", sh.ClientID))
	if d.Client.CompanyName != "" {
		clientName += " (" + d.Client.CompanyName + ")"
	}
	pdf.Cell(0, 6, clientName)
	pdf.Ln(6)
	if d.Client.Email != "" {
		pdf.Cell(0, 6, d.Client.Email)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Shipment:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Route          : %s -> %s", safe(sh.OriginPort, "-"), safe(sh.DestinationPort, "-")),
		fmt.Sprintf("Status         : %s", sh.StatusLabel()),
		fmt.Sprintf("Payment status : %s", sh.PaymentStatus.Label()),
		fmt.Sprintf("Container      : %s", safe(sh.ContainerNumber, "-")),
		fmt.Sprintf("B/L            : %s", safe(sh.BLNumber, "-")),
		fmt.Sprintf("Weight         : %.2f kg", sh.Weight),
	}
	if sh.WarehouseLocation != "" {
		lines = append(lines, fmt.Sprintf("Warehouse      : %s (%s)", sh.WarehouseLocation, safe(sh.WarehouseCondition, "-")))
	}
	for _, l := range lines {
		pdf.Cell(0, 6, l)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Payments:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(30, 7, "Date", "1", 0, "", false, 0, "")
	pdf.CellFormat(35, 7, "Method", "1", 0, "", false, 0, "")
	pdf.CellFormat(60, 7, "Reference", "1", 0, "", false, 0, "")
	pdf.CellFormat(45, 7, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if len(d.Payments) == 0 {
		pdf.CellFormat(170, 7, "No payments recorded", "1", 1, "C", false, 0, "")
	}
	for _, p := range d.Payments {
		pdf.CellFormat(30, 7, utils.FormatDate(p.PaymentDate), "1", 0, "", false, 0, "")
		pdf.CellFormat(35, 7, string(p.Method), "1", 0, "", false, 0, "")
		pdf.CellFormat(60, 7, safe(p.ReferenceNumber, "-"), "1", 0, "", false, 0, "")
		pdf.CellFormat(45, 7, utils.FormatMoney(p.Amount, string(p.Currency)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Total cost         : "+utils.FormatMoney(sh.TotalCost, cur))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Additional charges : "+utils.FormatMoney(sh.AdditionalCharges, cur))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Total paid         : "+utils.FormatMoney(d.Summary.TotalPaid, cur))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Balance due: "+utils.FormatMoney(d.Summary.Remaining, cur))
	pdf.Ln(10)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("STATEMENT_%s_%s.pdf", safeFilenamePart(sh.TrackingNumber), now.Format("20060102"))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	return utils.Fallback(v, fallback)
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
