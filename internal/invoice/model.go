package invoice

// Document types accepted in InvoiceData.DocumentType.
const (
	TaxInvoice      = "tax_invoice"
	PurchaseOrder   = "purchase_order"
	ProformaInvoice = "proforma_invoice"
	DeliveryChallan = "delivery_challan"
)

// Seller is the issuing business.
type Seller struct {
	Name              string  `json:"name" jsonschema_description:"Seller/company name"`
	Address           *string `json:"address,omitempty" jsonschema:"nullable" jsonschema_description:"Full address"`
	GSTIN             *string `json:"gstin,omitempty" jsonschema:"nullable" jsonschema_description:"GSTIN/UIN"`
	StateName         *string `json:"state_name,omitempty" jsonschema:"nullable" jsonschema_description:"State name"`
	StateCode         *string `json:"state_code,omitempty" jsonschema:"nullable" jsonschema_description:"State code (2-digit)"`
	PAN               *string `json:"pan,omitempty" jsonschema:"nullable" jsonschema_description:"PAN number"`
	CIN               *string `json:"cin,omitempty" jsonschema:"nullable" jsonschema_description:"CIN number"`
	UdyamRegistration *string `json:"udyam_registration,omitempty" jsonschema:"nullable" jsonschema_description:"Udyam registration number"`
	Contact           *string `json:"contact,omitempty" jsonschema:"nullable" jsonschema_description:"Phone/contact numbers"`
	Email             *string `json:"email,omitempty" jsonschema:"nullable" jsonschema_description:"Email address"`
}

// Buyer is a bill-to or ship-to party.
type Buyer struct {
	Name          string  `json:"name" jsonschema_description:"Buyer/consignee name"`
	Address       *string `json:"address,omitempty" jsonschema:"nullable" jsonschema_description:"Full address"`
	GSTIN         *string `json:"gstin,omitempty" jsonschema:"nullable" jsonschema_description:"GSTIN/UIN"`
	StateName     *string `json:"state_name,omitempty" jsonschema:"nullable" jsonschema_description:"State name"`
	StateCode     *string `json:"state_code,omitempty" jsonschema:"nullable" jsonschema_description:"State code (2-digit)"`
	PlaceOfSupply *string `json:"place_of_supply,omitempty" jsonschema:"nullable" jsonschema_description:"Place of supply (state)"`
}

type BankDetails struct {
	AccountHolder string `json:"account_holder" jsonschema_description:"A/C holder name"`
	BankName      string `json:"bank_name" jsonschema_description:"Bank name"`
	AccountNo     string `json:"account_no" jsonschema_description:"Account number"`
	BranchIFSC    string `json:"branch_ifsc" jsonschema_description:"Branch & IFSC code"`
}

type Item struct {
	Name     string  `json:"name" jsonschema_description:"Item/description of goods"`
	HSNCode  *string `json:"hsn_code,omitempty" jsonschema:"nullable" jsonschema_description:"HSN/SAC code"`
	Quantity float64 `json:"quantity" jsonschema_description:"Quantity"`
	Unit     string  `json:"unit,omitempty" jsonschema:"default=pcs" jsonschema_description:"Unit of measurement (pcs, kg, TON, m, etc.)"`
	Rate     float64 `json:"rate" jsonschema_description:"Rate per unit in INR"`
	Amount   float64 `json:"amount" jsonschema_description:"Total amount before tax (quantity * rate)"`
}

type HSNSummary struct {
	HSNCode      string  `json:"hsn_code" jsonschema_description:"HSN/SAC code"`
	TaxableValue float64 `json:"taxable_value" jsonschema_description:"Taxable value"`
	TaxRate      float64 `json:"tax_rate" jsonschema_description:"Tax rate percentage"`
	TaxAmount    float64 `json:"tax_amount" jsonschema_description:"Tax amount"`
}

// InvoiceData is everything extracted from a bill that goes on the document.
type InvoiceData struct {
	DocumentType string `json:"document_type,omitempty" jsonschema:"enum=tax_invoice,enum=purchase_order,enum=proforma_invoice,enum=delivery_challan,default=tax_invoice" jsonschema_description:"Type: tax_invoice, purchase_order, proforma_invoice, delivery_challan"`

	Seller    Seller `json:"seller" jsonschema_description:"Seller/company details"`
	Consignee *Buyer `json:"consignee,omitempty" jsonschema:"nullable" jsonschema_description:"Consignee (Ship to), if different from buyer"`
	Buyer     Buyer  `json:"buyer" jsonschema_description:"Buyer (Bill to) details"`

	InvoiceNumber     *string `json:"invoice_number,omitempty" jsonschema:"nullable" jsonschema_description:"Invoice number"`
	Date              string  `json:"date" jsonschema_description:"Date in DD-MMM-YY or DD/MM/YYYY format"`
	DeliveryNote      *string `json:"delivery_note,omitempty" jsonschema:"nullable" jsonschema_description:"Delivery note"`
	PaymentTerms      *string `json:"payment_terms,omitempty" jsonschema:"nullable" jsonschema_description:"Mode/terms of payment"`
	ReferenceNo       *string `json:"reference_no,omitempty" jsonschema:"nullable" jsonschema_description:"Reference no. & date"`
	BuyersOrderNo     *string `json:"buyers_order_no,omitempty" jsonschema:"nullable" jsonschema_description:"Buyer's order number"`
	DispatchDocNo     *string `json:"dispatch_doc_no,omitempty" jsonschema:"nullable" jsonschema_description:"Dispatch doc number"`
	DeliveryNoteDate  *string `json:"delivery_note_date,omitempty" jsonschema:"nullable" jsonschema_description:"Delivery note date"`
	DispatchedThrough *string `json:"dispatched_through,omitempty" jsonschema:"nullable" jsonschema_description:"Dispatched through"`
	Destination       *string `json:"destination,omitempty" jsonschema:"nullable" jsonschema_description:"Destination"`
	BillOfLadingNo    *string `json:"bill_of_lading_no,omitempty" jsonschema:"nullable" jsonschema_description:"Bill of Lading/LR-RR No."`
	MotorVehicleNo    *string `json:"motor_vehicle_no,omitempty" jsonschema:"nullable" jsonschema_description:"Motor vehicle number"`
	TermsOfDelivery   *string `json:"terms_of_delivery,omitempty" jsonschema:"nullable" jsonschema_description:"Terms of delivery"`

	Items []Item `json:"items" jsonschema:"minItems=1" jsonschema_description:"List of line items"`

	Subtotal       float64  `json:"subtotal" jsonschema_description:"Sum of all item amounts before tax"`
	TaxType        string   `json:"tax_type,omitempty" jsonschema:"enum=igst,enum=cgst_sgst,default=cgst_sgst" jsonschema_description:"'igst' for inter-state or 'cgst_sgst' for intra-state"`
	IGSTRate       *float64 `json:"igst_rate,omitempty" jsonschema:"nullable" jsonschema_description:"IGST rate % (inter-state)"`
	IGSTAmount     *float64 `json:"igst_amount,omitempty" jsonschema:"nullable" jsonschema_description:"IGST amount"`
	CGSTRate       *float64 `json:"cgst_rate,omitempty" jsonschema:"nullable" jsonschema_description:"CGST rate % (intra-state)"`
	CGSTAmount     *float64 `json:"cgst_amount,omitempty" jsonschema:"nullable" jsonschema_description:"CGST amount"`
	SGSTRate       *float64 `json:"sgst_rate,omitempty" jsonschema:"nullable" jsonschema_description:"SGST rate % (intra-state)"`
	SGSTAmount     *float64 `json:"sgst_amount,omitempty" jsonschema:"nullable" jsonschema_description:"SGST amount"`
	TotalTaxAmount float64  `json:"total_tax_amount" jsonschema_description:"Total tax amount"`
	TotalAmount    float64  `json:"total_amount" jsonschema_description:"Grand total including tax"`

	HSNSummary   []HSNSummary `json:"hsn_summary,omitempty" jsonschema_description:"HSN/SAC-wise tax summary"`
	BankDetails  *BankDetails `json:"bank_details,omitempty" jsonschema:"nullable" jsonschema_description:"Company bank details"`
	Declaration  *string      `json:"declaration,omitempty" jsonschema:"nullable" jsonschema_description:"Declaration text"`
	Jurisdiction *string      `json:"jurisdiction,omitempty" jsonschema:"nullable" jsonschema_description:"Jurisdiction statement"`
	Notes        *string      `json:"notes,omitempty" jsonschema:"nullable" jsonschema_description:"Any additional notes"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
