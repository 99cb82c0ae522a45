// Package eph builds the postal carrier's EPH shipping-label XML from
// orders. The batch document is what the admin downloads and imports at
// the carrier; the credentialed wrapper exists only for the carrier's
// submission API and must never end up in the download.
package eph

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/eshop/services/orders/config"
	"example.com/eshop/services/orders/internal/models"
)

const (
	// FormatVersion is the EPH schema version the carrier accepts.
	FormatVersion = "3.0"

	// ShipmentType is the fixed shipment-type code for parcel shipments.
	ShipmentType = "8"

	// batchIDLength is how many characters of the random token make up
	// the batch identifier.
	batchIDLength = 8
)

// Batch is the carrier-specific envelope around the shipment elements.
type Batch struct {
	XMLName   xml.Name     `xml:"EPH"`
	Version   string       `xml:"verzia,attr"`
	Info      BatchInfo    `xml:"InfoEPH"`
	Shipments ShipmentList `xml:"Zasielky"`
}

// ShipmentList wraps the shipment elements.
type ShipmentList struct {
	Items []Shipment `xml:"Zasielka"`
}

// BatchInfo carries the batch identifier, date and shipment count.
type BatchInfo struct {
	BatchID  string `xml:"EPHID"`
	Date     string `xml:"Datum"`
	Count    int    `xml:"PocetZasielok"`
	Currency string `xml:"Mena"`
}

// Shipment is one order on the shipping label manifest.
type Shipment struct {
	ShipmentID string       `xml:"ZasielkaID"`
	Recipient  Recipient    `xml:"Adresat"`
	Info       ShipmentInfo `xml:"Info"`
}

// Recipient is the shipment's destination identity and address. Tax
// identifiers are omitted from the output entirely when blank, never
// emitted as empty elements.
type Recipient struct {
	Name       string `xml:"Meno"`
	Company    string `xml:"Firma,omitempty"`
	Street     string `xml:"Ulica"`
	City       string `xml:"Mesto"`
	PostalCode string `xml:"PSC"`
	Country    string `xml:"Krajina,omitempty"`
	Phone      string `xml:"Telefon,omitempty"`
	Email      string `xml:"Email,omitempty"`
	ICO        string `xml:"ICO,omitempty"`
	DIC        string `xml:"DIC,omitempty"`
	ICDPH      string `xml:"ICDPH,omitempty"`
}

// ShipmentInfo carries the shipment metadata.
type ShipmentInfo struct {
	Weight         string `xml:"Hmotnost"`
	CODAmount      string `xml:"CenaDobierky,omitempty"`
	ShipmentType   string `xml:"DruhZasielky"`
	Note           string `xml:"Poznamka,omitempty"`
	VariableSymbol string `xml:"SymbolPrevodu,omitempty"`
}

// Envelope is the transport wrapper carrying the caller credentials for
// the carrier's submission API.
type Envelope struct {
	XMLName xml.Name `xml:"EPHWrapper"`
	Auth    Auth     `xml:"Auth"`
	Batch   Batch    `xml:"EPH"`
}

// Auth holds the carrier account credentials from deployment
// configuration, never from per-request input.
type Auth struct {
	AccountID string `xml:"UzivatelID"`
	APIKey    string `xml:"ApiKlic"`
}

// ShipmentError reports that one order's shipment element could not be
// built. The whole batch aborts on the first one.
type ShipmentError struct {
	OrderNumber int64
	Err         error
}

func (e *ShipmentError) Error() string {
	return fmt.Sprintf("failed to build shipment for order %d: %v", e.OrderNumber, e.Err)
}

func (e *ShipmentError) Unwrap() error {
	return e.Err
}

// Builder assembles EPH batches for a configured carrier account.
type Builder struct {
	cfg config.CarrierConfig
	now func() time.Time
}

// NewBuilder creates a builder using the given carrier configuration.
func NewBuilder(cfg config.CarrierConfig) *Builder {
	return &Builder{cfg: cfg, now: time.Now}
}

// BuildBatch converts the orders into one EPH batch. A failure on any
// single order aborts the whole build with a ShipmentError naming it.
func (b *Builder) BuildBatch(orders []models.Order) (*Batch, error) {
	batch := &Batch{
		Version: FormatVersion,
		Info: BatchInfo{
			BatchID:  newBatchID(),
			Date:     b.now().Format("02.01.2006"),
			Count:    len(orders),
			Currency: "EUR",
		},
	}

	for i := range orders {
		shipment, err := b.buildShipment(&orders[i])
		if err != nil {
			return nil, &ShipmentError{OrderNumber: orders[i].OrderNumber, Err: err}
		}
		batch.Shipments.Items = append(batch.Shipments.Items, shipment)
	}

	return batch, nil
}

// buildShipment maps one order onto a shipment element.
func (b *Builder) buildShipment(order *models.Order) (Shipment, error) {
	if order.CustomerName == "" {
		return Shipment{}, errors.New("recipient name is empty")
	}
	if order.Street == "" || order.City == "" || order.PostalCode == "" {
		return Shipment{}, errors.New("recipient address is incomplete")
	}

	info := ShipmentInfo{
		// The manifest carries a weight placeholder; real weighing
		// happens at the counter.
		Weight:         "0.00",
		ShipmentType:   ShipmentType,
		Note:           order.Note,
		VariableSymbol: order.VariableSymbol,
	}
	if order.PaymentOption == b.cfg.CODPaymentName {
		info.CODAmount = order.TotalPrice.StringFixed(2)
	}

	return Shipment{
		ShipmentID: fmt.Sprintf("%d", order.OrderNumber),
		Recipient: Recipient{
			Name:       order.CustomerName,
			Company:    order.Company,
			Street:     order.Street,
			City:       order.City,
			PostalCode: order.PostalCode,
			Country:    order.Country,
			Phone:      order.PhoneNumber,
			Email:      order.Email,
			ICO:        order.ICO,
			DIC:        order.DIC,
			ICDPH:      order.ICDPH,
		},
		Info: info,
	}, nil
}

// Envelope wraps a batch in the credentialed transport envelope for the
// carrier's submission API.
func (b *Builder) Envelope(batch *Batch) *Envelope {
	return &Envelope{
		Auth: Auth{
			AccountID: b.cfg.AccountID,
			APIKey:    b.cfg.APIKey,
		},
		Batch: *batch,
	}
}

// Marshal serializes an EPH document with the XML header.
func Marshal(doc interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal EPH document")
	}
	return append([]byte(xml.Header), body...), nil
}

// FileName returns the date-stamped download name for a batch.
func (b *Builder) FileName() string {
	return fmt.Sprintf("eph-%s.xml", b.now().Format("2006-01-02"))
}

// newBatchID derives the batch identifier from a random unique token,
// truncated to a fixed length.
func newBatchID() string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(token[:batchIDLength])
}
