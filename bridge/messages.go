package bridge

import (
	"encoding/json"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/Digital-Creators-Team/chain-slots-engine/errors"
	"github.com/Digital-Creators-Team/chain-slots-engine/game"
)

// Inbound message types accepted from a game surface.
const (
	MsgInit        = "INIT"
	MsgSpinRequest = "SPIN_REQUEST"
	MsgGetBalance  = "GET_BALANCE"
	MsgGetConfig   = "GET_CONFIG"
)

// Outbound message types pushed to a game surface. BALANCE_UPDATE and
// BALANCE_RESPONSE share one payload shape; the former is an unsolicited
// push, the latter answers a GET_BALANCE.
const (
	MsgOutcome         = "OUTCOME"
	MsgBalanceUpdate   = "BALANCE_UPDATE"
	MsgBalanceResponse = "BALANCE_RESPONSE"
	MsgConfig          = "CONFIG"
	MsgSpinSubmitted   = "SPIN_SUBMITTED"
	MsgError           = "ERROR"
)

// Envelope is the tagged-union wire format: the type selects the variant
// the data payload is decoded into.
type Envelope struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Outbound is a message pushed to the game surface.
type Outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ErrorPayload is the data of an ERROR outbound message.
type ErrorPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// InitPayload carries the optional contract binding on INIT. When present it
// must name the contract this host serves.
type InitPayload struct {
	ContractID string `mapstructure:"contractId"`
}

// SpinRequestPayload is the data of a SPIN_REQUEST. Amounts are integral
// base units; anything else fails structural validation. SpinID is an
// optional correlation id echoed on the resulting OUTCOME.
type SpinRequestPayload struct {
	BetPerLine int64  `mapstructure:"betPerLine"`
	Paylines   int    `mapstructure:"paylines"`
	SpinID     string `mapstructure:"spinId"`
}

// GetBalancePayload is the data of a GET_BALANCE. The message carries no
// fields; the empty struct keeps the strict decode rejecting extras.
type GetBalancePayload struct{}

// BalancePayload is the shared shape of BALANCE_UPDATE and BALANCE_RESPONSE.
// AvailableBalance is the spendable figure, already net of reservations and
// clamped at zero.
type BalancePayload struct {
	Balance          int64 `json:"balance"`
	AvailableBalance int64 `json:"availableBalance"`
}

// SpinSubmittedPayload acknowledges chain submission of an accepted spin.
type SpinSubmittedPayload struct {
	SpinID string `json:"spinId"`
	TxID   string `json:"txId,omitempty"`
}

// OutcomePayload is the settled result pushed to the surface.
type OutcomePayload struct {
	SpinID       string             `json:"spinId"`
	Grid         game.Grid          `json:"grid"`
	Winnings     int64              `json:"winnings"`
	IsWin        bool               `json:"isWin"`
	WinningLines []game.WinningLine `json:"winningLines"`
	WinLevel     string             `json:"winLevel"`
	BetPerLine   int64              `json:"betPerLine"`
	Paylines     int                `json:"paylines"`
	TotalBet     int64              `json:"totalBet"`
}

// ParseEnvelope decodes the raw frame into an envelope. A frame that is not
// a JSON object with a string type is INVALID_MESSAGE.
func ParseEnvelope(raw []byte) (*Envelope, *errors.AppError) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidMessage, "message is not valid JSON")
	}
	if env.Type == "" {
		return nil, errors.New(errors.CodeInvalidMessage, "message has no type")
	}
	return &env, nil
}

// decodePayload performs strict structural decoding of the envelope data
// into the variant struct: unknown fields and type mismatches both reject
// the message.
func decodePayload(data map[string]interface{}, out interface{}) *errors.AppError {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeInternalError, "payload decoder setup failed")
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	if err := decoder.Decode(data); err != nil {
		return errors.Wrap(err, errors.CodeInvalidMessage, "message payload has invalid shape")
	}
	return nil
}

// requireIntegral rejects fractional amounts before decoding truncates them.
// Money crosses the bridge only as integral base units.
func requireIntegral(data map[string]interface{}, fields ...string) *errors.AppError {
	for _, field := range fields {
		if v, ok := data[field].(float64); ok && v != math.Trunc(v) {
			return errors.Newf(errors.CodeInvalidRequest, "%s must be an integral base-unit amount", field)
		}
	}
	return nil
}
