package domain

import "strings"

// FillingMode selects how the venue is asked to fill a market order. Default
// leaves the choice to the venue; the alternates are tried in order when the
// venue rejects a mode as unsupported.
type FillingMode string

const (
	FillingDefault FillingMode = ""
	FillingIOC     FillingMode = "ioc"
	FillingFOK     FillingMode = "fok"
	FillingReturn  FillingMode = "return"
)

// FallbackFillingModes is the retry order after a default-mode rejection.
var FallbackFillingModes = []FillingMode{FillingIOC, FillingFOK, FillingReturn}

// OrderRequest is a market order submission.
type OrderRequest struct {
	Symbol    string
	Direction Direction
	Volume    float64
	Price     float64
	Stop      float64
	Target    float64
	Deviation int
	Comment   string
	Filling   FillingMode
}

// Venue return codes. RetPlaced is a vendor quirk seen on some brokers that
// reports a filled order as merely placed.
const (
	RetOK                 = 0
	RetPlaced             = 10008
	RetDone               = 10009
	RetUnsupportedFilling = 10030
)

// OrderResult is the venue's response to a submission attempt.
type OrderResult struct {
	Ticket  int64
	Code    int
	Message string
}

// Success reports whether the attempt produced a live position.
func (r OrderResult) Success() bool {
	switch r.Code {
	case RetOK, RetPlaced, RetDone:
		return true
	}
	return false
}

// FillingRejected reports whether the rejection is attributable to an
// unsupported filling mode and therefore worth retrying with an alternate.
func (r OrderResult) FillingRejected() bool {
	if r.Success() {
		return false
	}
	if r.Code == RetUnsupportedFilling {
		return true
	}
	return strings.Contains(strings.ToLower(r.Message), "filling")
}
