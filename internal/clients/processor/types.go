package processor

// InstrumentType is the coarse class of a payment instrument. Bank debits
// settle over several days and may fail after initial success.
type InstrumentType string

const (
	InstrumentCard InstrumentType = "card"
	InstrumentBank InstrumentType = "us_bank_account"
)

// CaptureMode decides whether funds move on authorization or on a later capture call.
type CaptureMode string

const (
	CaptureManual    CaptureMode = "manual"
	CaptureAutomatic CaptureMode = "automatic"
)

func (m CaptureMode) Valid() bool {
	return m == CaptureManual || m == CaptureAutomatic
}

type IntentStatus string

const (
	StatusSucceeded       IntentStatus = "succeeded"
	StatusRequiresCapture IntentStatus = "requires_capture"
	StatusProcessing      IntentStatus = "processing"
	StatusRequiresAction  IntentStatus = "requires_action"
	StatusCanceled        IntentStatus = "canceled"
)

type Customer struct {
	ID string
}

type Instrument struct {
	ID         string
	Type       InstrumentType
	CustomerID string
}

// AuthorizeParams describes a split payment toward a connected account.
type AuthorizeParams struct {
	AmountCents         int64
	Currency            string
	CustomerID          string
	InstrumentID        string
	InstrumentType      InstrumentType
	Destination         string
	CaptureMode         CaptureMode
	ApplicationFeeCents int64
	IdempotencyKey      string
	ReceiptEmail        string
	Metadata            map[string]string
}

type Authorization struct {
	IntentID    string
	Status      IntentStatus
	AmountCents int64
}
