package invoice

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultDeclaration is printed when the extracted data has none.
const DefaultDeclaration = "We declare that this invoice shows the actual price of the " +
	"goods described and that all particulars are true and correct."

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Table))

	nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
	cellEsc  = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")
)

// Document is a rendered invoice ready to be written to disk.
type Document struct {
	Number   string
	Filename string
	Markdown string
	HTML     []byte
}

var titles = map[string]string{
	TaxInvoice:      "Tax Invoice",
	PurchaseOrder:   "Purchase Order",
	ProformaInvoice: "Proforma Invoice",
	DeliveryChallan: "Delivery Challan",
}

// Render lays out data as a Markdown document and converts it to HTML.
// now stamps generated invoice numbers and fills a missing date.
func Render(data InvoiceData, now time.Time) (*Document, error) {
	number := str(data.InvoiceNumber)
	if number == "" {
		number = "SB-" + now.Format("20060102150405")
	}
	declaration := str(data.Declaration)
	if declaration == "" {
		declaration = DefaultDeclaration
	}
	jurisdiction := str(data.Jurisdiction)
	if jurisdiction == "" && str(data.Seller.StateName) != "" {
		jurisdiction = str(data.Seller.StateName) + " Jurisdiction"
	}
	consignee := data.Buyer
	if data.Consignee != nil {
		consignee = *data.Consignee
	}

	var b strings.Builder
	title := titles[data.DocumentType]
	if title == "" {
		title = titles[TaxInvoice]
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	writeSeller(&b, data.Seller)
	writeMeta(&b, number, data)
	writeBuyer(&b, "Consignee (Ship to)", consignee)
	writeBuyer(&b, "Buyer (Bill to)", data.Buyer)
	writeItems(&b, data)
	fmt.Fprintf(&b, "**Amount Chargeable (in words):** INR %s Only\n\n", AmountWords(data.TotalAmount))
	writeHSN(&b, data)

	if pan := str(data.Seller.PAN); pan != "" {
		fmt.Fprintf(&b, "Company's PAN: %s\n\n", pan)
	}
	fmt.Fprintf(&b, "**Declaration**\n\n%s\n\n", declaration)
	if bank := data.BankDetails; bank != nil {
		b.WriteString("**Company's Bank Details**\n\n| | |\n|---|---|\n")
		row(&b, "A/c Holder's Name", bank.AccountHolder)
		row(&b, "Bank Name", bank.BankName)
		row(&b, "A/c No.", bank.AccountNo)
		row(&b, "Branch & IFS Code", bank.BranchIFSC)
		fmt.Fprintf(&b, "\nfor %s\n\nAuthorised Signatory\n\n", data.Seller.Name)
	}
	if notes := str(data.Notes); notes != "" {
		fmt.Fprintf(&b, "**Notes:** %s\n\n", notes)
	}
	if jurisdiction != "" {
		fmt.Fprintf(&b, "SUBJECT TO %s\n\n", strings.ToUpper(jurisdiction))
	}
	b.WriteString("*This is a Computer Generated Invoice*\n")

	var body bytes.Buffer
	if err := md.Convert([]byte(b.String()), &body); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", number, err)
	}
	html := fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>%s %s</title></head>
<body style="font-family: sans-serif; font-size: 13px; line-height: 1.4;">
%s
</body></html>
`, title, number, body.String())

	return &Document{
		Number:   number,
		Filename: Filename(data, number, now),
		Markdown: b.String(),
		HTML:     []byte(html),
	}, nil
}

// Filename returns SB_<date>_<number>_<buyer>.html with unsafe characters removed.
func Filename(data InvoiceData, number string, now time.Time) string {
	date := data.Date
	if date == "" {
		date = now.Format("02-Jan-2006")
	}
	date = strings.ReplaceAll(strings.ReplaceAll(date, "/", "-"), " ", "")
	inv := strings.ReplaceAll(strings.ReplaceAll(number, "/", "-"), " ", "")
	buyer := nonAlnum.ReplaceAllString(data.Buyer.Name, "-")
	if len(buyer) > 30 {
		buyer = buyer[:30]
	}
	buyer = strings.Trim(buyer, "-")
	return fmt.Sprintf("SB_%s_%s_%s.html", sanitize(date), sanitize(inv), buyer)
}

func sanitize(s string) string {
	return strings.Trim(nonAlnumDash.ReplaceAllString(s, "-"), "-")
}

var nonAlnumDash = regexp.MustCompile(`[^a-zA-Z0-9\-]`)

func writeSeller(b *strings.Builder, s Seller) {
	fmt.Fprintf(b, "## %s\n\n", s.Name)
	lines := []string{}
	if v := str(s.Address); v != "" {
		lines = append(lines, v)
	}
	if v := str(s.UdyamRegistration); v != "" {
		lines = append(lines, "Udyam Registration "+v)
	}
	if v := str(s.GSTIN); v != "" {
		lines = append(lines, "GSTIN/UIN: "+v)
	}
	if v := str(s.StateName); v != "" {
		state := "State Name: " + v
		if c := str(s.StateCode); c != "" {
			state += ", Code: " + c
		}
		lines = append(lines, state)
	}
	if v := str(s.CIN); v != "" {
		lines = append(lines, "CIN: "+v)
	}
	if v := str(s.Contact); v != "" {
		lines = append(lines, "Contact: "+v)
	}
	if v := str(s.Email); v != "" {
		lines = append(lines, "E-Mail: "+v)
	}
	for _, l := range lines {
		fmt.Fprintf(b, "%s  \n", l)
	}
	b.WriteString("\n")
}

func writeMeta(b *strings.Builder, number string, d InvoiceData) {
	b.WriteString("| | |\n|---|---|\n")
	row(b, "Invoice No.", number)
	row(b, "Dated", d.Date)
	for _, f := range []struct {
		label string
		value *string
	}{
		{"Delivery Note", d.DeliveryNote},
		{"Mode/Terms of Payment", d.PaymentTerms},
		{"Reference No. & Date", d.ReferenceNo},
		{"Buyer's Order No.", d.BuyersOrderNo},
		{"Dispatch Doc No.", d.DispatchDocNo},
		{"Delivery Note Date", d.DeliveryNoteDate},
		{"Dispatched through", d.DispatchedThrough},
		{"Destination", d.Destination},
		{"Bill of Lading/LR-RR No.", d.BillOfLadingNo},
		{"Motor Vehicle No.", d.MotorVehicleNo},
		{"Terms of Delivery", d.TermsOfDelivery},
	} {
		if v := str(f.value); v != "" {
			row(b, f.label, v)
		}
	}
	b.WriteString("\n")
}

func writeBuyer(b *strings.Builder, heading string, p Buyer) {
	fmt.Fprintf(b, "**%s**  \n%s  \n", heading, p.Name)
	if v := str(p.Address); v != "" {
		fmt.Fprintf(b, "%s  \n", v)
	}
	if v := str(p.GSTIN); v != "" {
		fmt.Fprintf(b, "GSTIN/UIN: %s  \n", v)
	}
	if v := str(p.StateName); v != "" {
		state := "State Name: " + v
		if c := str(p.StateCode); c != "" {
			state += ", Code: " + c
		}
		fmt.Fprintf(b, "%s  \n", state)
	}
	if v := str(p.PlaceOfSupply); v != "" {
		fmt.Fprintf(b, "Place of Supply: %s  \n", v)
	}
	b.WriteString("\n")
}

func writeItems(b *strings.Builder, d InvoiceData) {
	b.WriteString("| Sl No. | Description of Goods | HSN/SAC | Quantity | Rate | per | Amount |\n")
	b.WriteString("|---:|---|---|---:|---:|---|---:|\n")
	var qty float64
	units := map[string]bool{}
	for i, it := range d.Items {
		unit := it.Unit
		if unit == "" {
			unit = "pcs"
		}
		units[unit] = true
		qty += it.Quantity
		fmt.Fprintf(b, "| %d | %s | %s | %s %s | %s | %s | %s |\n",
			i+1, cellEsc.Replace(it.Name), cellEsc.Replace(str(it.HSNCode)),
			Money3(it.Quantity), unit, Money(it.Rate), unit, Money(it.Amount))
	}
	fmt.Fprintf(b, "| | **Subtotal** | | | | | %s |\n", Money(d.Subtotal))
	if d.TaxType == "igst" {
		taxRow(b, "IGST", d.IGSTRate, d.IGSTAmount)
	} else {
		taxRow(b, "CGST", d.CGSTRate, d.CGSTAmount)
		taxRow(b, "SGST", d.SGSTRate, d.SGSTAmount)
	}
	totalQty := ""
	if len(units) == 1 {
		for u := range units {
			totalQty = Money3(qty) + " " + u
		}
	}
	fmt.Fprintf(b, "| | **Total** | | %s | | | **₹ %s** |\n\n", totalQty, Money(d.TotalAmount))
}

func taxRow(b *strings.Builder, name string, rate, amount *float64) {
	if amount == nil {
		return
	}
	label := name
	if rate != nil {
		label = fmt.Sprintf("%s @ %g%%", name, *rate)
	}
	fmt.Fprintf(b, "| | %s | | | | | %s |\n", label, Money(*amount))
}

func writeHSN(b *strings.Builder, d InvoiceData) {
	if len(d.HSNSummary) == 0 {
		return
	}
	label := "Central Tax + State Tax"
	if d.TaxType == "igst" {
		label = "Integrated Tax"
	}
	fmt.Fprintf(b, "| HSN/SAC | Taxable Value | Rate | %s Amount | Total Tax Amount |\n", label)
	b.WriteString("|---|---:|---:|---:|---:|\n")
	var taxable, tax float64
	for _, h := range d.HSNSummary {
		taxable += h.TaxableValue
		tax += h.TaxAmount
		fmt.Fprintf(b, "| %s | %s | %g%% | %s | %s |\n",
			cellEsc.Replace(h.HSNCode), Money(h.TaxableValue), h.TaxRate, Money(h.TaxAmount), Money(h.TaxAmount))
	}
	fmt.Fprintf(b, "| **Total** | %s | | %s | %s |\n\n", Money(taxable), Money(tax), Money(tax))
	fmt.Fprintf(b, "**Tax Amount (in words):** INR %s Only\n\n", AmountWords(tax))
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", cellEsc.Replace(label), cellEsc.Replace(value))
}

// Money formats v with two decimals and thousands separators.
func Money(v float64) string { return group(fmt.Sprintf("%.2f", v)) }

// Money3 is Money with three decimals, used for quantities.
func Money3(v float64) string { return group(fmt.Sprintf("%.3f", v)) }

func group(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var out []byte
	for i := range len(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	res := string(out)
	if frac != "" {
		res += "." + frac
	}
	if neg {
		res = "-" + res
	}
	return res
}
