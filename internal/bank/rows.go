package bank

import (
	"fmt"
	"strings"

	"github.com/Veraticus/statement-flow/internal/model"
)

// Column names used by the supported exports.
const (
	colAuftragskonto    = "Auftragskonto"
	colBuchungstag      = "Buchungstag"
	colValutadatum      = "Valutadatum"
	colBuchungstext     = "Buchungstext"
	colVerwendungszweck = "Verwendungszweck"
	colGlaeubigerID     = "Glaeubiger ID"
	colBeguenstigter    = "Beguenstigter/Zahlungspflichtiger"
	colIBAN             = "Kontonummer/IBAN"
	colBetrag           = "Betrag"
	colWaehrung         = "Waehrung"

	colAuthorisedOn    = "Authorised on"
	colProcessedOn     = "Processed on"
	colAmount          = "Amount"
	colCurrency        = "Currency"
	colDescription     = "Description"
	colPaymentType     = "Payment type"
	colStatus          = "Status"
	colAmountForeign   = "Amount foreign"
	colCurrencyForeign = "Currency foreign"

	colDatum         = "Datum"
	colBeschreibung  = "Beschreibung"
	colKonto         = "Konto"
	colKarteninhaber = "Karteninhaber"
	colKartennummer  = "Kartennummer"
	colBetreff       = "Betreff"
	colReferenz      = "Referenz"
)

const (
	defaultCurrency = "EUR"
	keySeparator    = " -- "

	tagAmexPayment = "pagamento Amex"
	tagMMPayment   = "pagamento M&M"
	tagRefund      = "reembolso"
)

// Row is a typed record from one of the supported exports. Values are kept
// as the raw strings of the export until Parse is called.
type Row interface {
	// Format identifies the export the row came from.
	Format() model.BankFormat
	// Parse converts the raw values into a canonical record.
	Parse() (model.ParsedRow, error)
	// Fields returns the raw record keyed by column.
	Fields() map[string]string
	// RawValues returns the amount and date exactly as exported.
	RawValues() (amount, date string)

	isRow()
}

// SparkasseRow is a line of a Sparkasse giro account export.
type SparkasseRow struct {
	fields           map[string]string
	Auftragskonto    string
	Buchungstag      string
	Valutadatum      string
	Buchungstext     string
	Verwendungszweck string
	GlaeubigerID     string
	Beguenstigter    string
	IBAN             string
	Betrag           string
	Waehrung         string
}

// MilesAndMoreRow is a line of a Miles & More credit card export.
type MilesAndMoreRow struct {
	fields          map[string]string
	AuthorisedOn    string
	ProcessedOn     string
	Amount          string
	Currency        string
	Description     string
	PaymentType     string
	Status          string
	AmountForeign   string
	CurrencyForeign string
}

// AmexRow is a line of an American Express activity export.
type AmexRow struct {
	fields        map[string]string
	Datum         string
	Beschreibung  string
	Betrag        string
	Konto         string
	Karteninhaber string
	Kartennummer  string
	Betreff       string
	Referenz      string
}

func newSparkasseRow(rec Record) Row {
	return &SparkasseRow{
		fields:           rec.Map(),
		Auftragskonto:    rec.Get(colAuftragskonto),
		Buchungstag:      rec.Get(colBuchungstag),
		Valutadatum:      rec.Get(colValutadatum),
		Buchungstext:     rec.Get(colBuchungstext),
		Verwendungszweck: rec.Get(colVerwendungszweck),
		GlaeubigerID:     rec.First(colGlaeubigerID, "GlaeubigerID"),
		Beguenstigter:    rec.Get(colBeguenstigter),
		IBAN:             rec.Get(colIBAN),
		Betrag:           rec.Get(colBetrag),
		Waehrung:         rec.Get(colWaehrung),
	}
}

func newMilesAndMoreRow(rec Record) Row {
	return &MilesAndMoreRow{
		fields:          rec.Map(),
		AuthorisedOn:    rec.Get(colAuthorisedOn),
		ProcessedOn:     rec.Get(colProcessedOn),
		Amount:          rec.Get(colAmount),
		Currency:        rec.Get(colCurrency),
		Description:     rec.Get(colDescription),
		PaymentType:     rec.Get(colPaymentType),
		Status:          rec.Get(colStatus),
		AmountForeign:   rec.Get(colAmountForeign),
		CurrencyForeign: rec.Get(colCurrencyForeign),
	}
}

func newAmexRow(rec Record) Row {
	return &AmexRow{
		fields:        rec.Map(),
		Datum:         rec.Get(colDatum),
		Beschreibung:  rec.Get(colBeschreibung),
		Betrag:        rec.Get(colBetrag),
		Konto:         rec.Get(colKonto),
		Karteninhaber: rec.Get(colKarteninhaber),
		Kartennummer:  rec.Get(colKartennummer),
		Betreff:       rec.Get(colBetreff),
		Referenz:      rec.Get(colReferenz),
	}
}

func (*SparkasseRow) isRow()    {}
func (*MilesAndMoreRow) isRow() {}
func (*AmexRow) isRow()         {}

// Format implements Row.
func (*SparkasseRow) Format() model.BankFormat { return model.FormatSparkasse }

// Format implements Row.
func (*MilesAndMoreRow) Format() model.BankFormat { return model.FormatMilesAndMore }

// Format implements Row.
func (*AmexRow) Format() model.BankFormat { return model.FormatAmex }

// Fields implements Row.
func (r *SparkasseRow) Fields() map[string]string { return r.fields }

// Fields implements Row.
func (r *MilesAndMoreRow) Fields() map[string]string { return r.fields }

// Fields implements Row.
func (r *AmexRow) Fields() map[string]string { return r.fields }

// RawValues implements Row.
func (r *SparkasseRow) RawValues() (string, string) {
	return r.Betrag, firstNonEmpty(r.Buchungstag, r.Valutadatum)
}

// RawValues implements Row.
func (r *MilesAndMoreRow) RawValues() (string, string) {
	return r.Amount, firstNonEmpty(r.AuthorisedOn, r.ProcessedOn)
}

// RawValues implements Row.
func (r *AmexRow) RawValues() (string, string) {
	return r.Betrag, r.Datum
}

// Parse implements Row. Card settlements are tagged so the internal
// transfer rules can pick them up.
func (r *SparkasseRow) Parse() (model.ParsedRow, error) {
	date, err := ParseDottedDate(firstNonEmpty(r.Buchungstag, r.Valutadatum))
	if err != nil {
		return model.ParsedRow{}, err
	}
	amount, err := ParseEUAmount(r.Betrag)
	if err != nil {
		return model.ParsedRow{}, err
	}

	keyDesc := joinComponents(
		r.Beguenstigter,
		r.Verwendungszweck,
		r.Buchungstext,
		r.IBAN,
		labelled(model.FormatSparkasse, r.Beguenstigter),
	)
	payee := strings.ToLower(r.Beguenstigter)
	switch {
	case strings.Contains(payee, "american express"):
		keyDesc = joinComponents(keyDesc, tagAmexPayment)
	case strings.Contains(payee, "deutsche kreditbank"):
		keyDesc = joinComponents(keyDesc, tagMMPayment)
	}

	return model.ParsedRow{
		Source:      model.FormatSparkasse,
		Account:     r.Auftragskonto,
		PaymentDate: date,
		Amount:      amount,
		Currency:    firstNonEmpty(r.Waehrung, defaultCurrency),
		DescRaw:     firstNonEmpty(r.Verwendungszweck, r.Beguenstigter),
		KeyDesc:     keyDesc,
	}, nil
}

// Parse implements Row. The authorisation date wins over the processing date.
func (r *MilesAndMoreRow) Parse() (model.ParsedRow, error) {
	date, err := ParseDottedDate(firstNonEmpty(r.AuthorisedOn, r.ProcessedOn))
	if err != nil {
		return model.ParsedRow{}, err
	}
	amount, err := ParseEUAmount(r.Amount)
	if err != nil {
		return model.ParsedRow{}, err
	}

	keyDesc := joinComponents(
		r.Description,
		r.PaymentType,
		r.Status,
		labelled(model.FormatMilesAndMore, r.Description),
	)
	foreign := strings.TrimSpace(r.AmountForeign) != ""
	if foreign {
		keyDesc = joinComponents(keyDesc, "compra internacional em "+firstNonEmpty(r.CurrencyForeign, "Moeda Estrangeira"))
	}
	if strings.Contains(strings.ToLower(r.Description), "lastschrift") {
		keyDesc = joinComponents(keyDesc, tagMMPayment)
	}
	if amount.IsPositive() {
		keyDesc = joinComponents(keyDesc, tagRefund)
	}

	return model.ParsedRow{
		Source:      model.FormatMilesAndMore,
		PaymentDate: date,
		Amount:      amount,
		Currency:    firstNonEmpty(r.Currency, defaultCurrency),
		DescRaw:     r.Description,
		KeyDesc:     keyDesc,
		Foreign:     foreign,
	}, nil
}

// Parse implements Row. Amex lists charges as positive amounts, so the sign
// is inverted to match the giro convention of negative expenses.
func (r *AmexRow) Parse() (model.ParsedRow, error) {
	date, err := ParseSlashedDate(r.Datum)
	if err != nil {
		return model.ParsedRow{}, err
	}
	raw, err := ParseEUAmount(r.Betrag)
	if err != nil {
		return model.ParsedRow{}, err
	}

	keyDesc := joinComponents(
		r.Beschreibung,
		r.Konto,
		r.Karteninhaber,
		labelled(model.FormatAmex, r.Beschreibung),
	)
	switch {
	case strings.Contains(strings.ToLower(r.Beschreibung), "erhalten besten dank"):
		keyDesc = joinComponents(keyDesc, tagAmexPayment)
	case raw.IsNegative():
		keyDesc = joinComponents(keyDesc, tagRefund)
	}

	return model.ParsedRow{
		Source:      model.FormatAmex,
		Account:     firstNonEmpty(r.Konto, r.Kartennummer),
		PaymentDate: date,
		Amount:      raw.Neg(),
		Currency:    defaultCurrency,
		DescRaw:     r.Beschreibung,
		KeyDesc:     keyDesc,
	}, nil
}

// RowError describes a data row that could not be mapped or parsed.
type RowError struct {
	Err    error
	Line   int
	Format model.BankFormat
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row at line %d: %v", e.Format, e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func labelled(format model.BankFormat, desc string) string {
	if strings.TrimSpace(desc) == "" {
		return ""
	}
	return format.Label() + " - " + strings.TrimSpace(desc)
}

func joinComponents(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, keySeparator)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
