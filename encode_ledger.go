package irpf

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// CommandType is a typed string for identifying ledger lines.
type CommandType string

const (
	CmdDeclare      CommandType = "declare"
	CmdBuy          CommandType = "buy"
	CmdSell         CommandType = "sell"
	CmdEarning      CommandType = "earning"
	CmdBonus        CommandType = "bonus"
	CmdSubscription CommandType = "subscription"
	CmdSplit        CommandType = "split"
	CmdInplit       CommandType = "inplit"
	CmdConvert      CommandType = "convert"
)

// DecodeLedger decodes a ledger from a stream of JSONL data, one record per
// line identified by its "command" field.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for line := 1; scanner.Scan(); line++ {
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}

		var identifier struct {
			Command CommandType `json:"command"`
		}
		if err := json.Unmarshal(lineBytes, &identifier); err != nil {
			return nil, fmt.Errorf("line %d: could not identify command in %q: %w", line, string(lineBytes), err)
		}

		var err error
		switch identifier.Command {
		case CmdDeclare:
			var a Asset
			if err = json.Unmarshal(lineBytes, &a); err == nil {
				err = ledger.Declare(a)
			}
		case CmdBuy, CmdSell:
			var n Negotiation
			if err = json.Unmarshal(lineBytes, &n); err == nil {
				n.Kind = KindBuy
				if identifier.Command == CmdSell {
					n.Kind = KindSell
				}
				err = ledger.AppendNegotiation(n)
			}
		case CmdEarning:
			var e Earnings
			if err = json.Unmarshal(lineBytes, &e); err == nil {
				err = ledger.AppendEarnings(e)
			}
		case CmdBonus:
			var b Bonus
			if err = json.Unmarshal(lineBytes, &b); err == nil {
				err = ledger.AppendBonus(b)
			}
		case CmdSubscription:
			var s Subscription
			if err = json.Unmarshal(lineBytes, &s); err == nil {
				err = ledger.AppendSubscription(s)
			}
		case CmdSplit, CmdInplit:
			var e AssetEvent
			if err = json.Unmarshal(lineBytes, &e); err == nil {
				e.Kind = Split
				if identifier.Command == CmdInplit {
					e.Kind = Inplit
				}
				err = ledger.AppendAssetEvent(e)
			}
		case CmdConvert:
			var c AssetConvert
			if err = json.Unmarshal(lineBytes, &c); err == nil {
				err = ledger.AppendAssetConvert(c)
			}
		default:
			err = fmt.Errorf("unknown command: %q", identifier.Command)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	return ledger, nil
}

// encodeLine writes a record as a JSON line, with its command as first key.
func encodeLine(w io.Writer, cmd CommandType, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", cmd, err)
	}
	line := fmt.Appendf(nil, `{"command":%q`, cmd)
	if len(data) > 2 {
		line = append(line, ',')
	}
	line = append(line, data[1:]...)
	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write %s: %w", cmd, err)
	}
	return nil
}

// EncodeLedger writes the ledger in JSONL format: the declarations sorted by
// ticker, then the records in chronological order.
func EncodeLedger(w io.Writer, ledger *Ledger) error {
	decimal.MarshalJSONWithoutQuotes = true

	for a := range ledger.Assets() {
		if err := encodeLine(w, CmdDeclare, a); err != nil {
			return err
		}
	}
	for _, e := range ledger.entries {
		var err error
		switch v := e.record.(type) {
		case Negotiation:
			v.Price, v.Tax, v.IRRF = v.Price.Exact(), v.Tax.Exact(), v.IRRF.Exact()
			err = encodeLine(w, e.command, v)
		case Earnings:
			v.Total = v.Total.Exact()
			err = encodeLine(w, e.command, v)
		case Bonus:
			v.BaseValue = v.BaseValue.Exact()
			err = encodeLine(w, e.command, v)
		case Subscription:
			v.Price = v.Price.Exact()
			err = encodeLine(w, e.command, v)
		case AssetEvent:
			err = encodeLine(w, e.command, v)
		case AssetConvert:
			err = encodeLine(w, e.command, v)
		default:
			err = fmt.Errorf("unexpected ledger record %T", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
