// Package csvio reads and writes the customer CSV interchange format.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tekinformatica/painel-go/internal/domain"
)

// Header is the fixed column order of exports and imports.
var Header = []string{
	"id_client", "nome", "telefone", "servidor", "plano_mensal",
	"plano_trimestral", "data_vencimento", "status", "conta_criada", "observacao",
}

// Export writes the header and one row per customer. Every field is quoted
// and embedded quotes are doubled. The status column is the derived status.
func Export(w io.Writer, views []domain.CustomerView) error {
	if err := writeRow(w, Header); err != nil {
		return err
	}
	for _, v := range views {
		row := []string{
			v.ExternalCode,
			v.Name,
			v.Phone,
			string(v.Tier),
			v.MonthlyPrice.String(),
			v.QuarterlyPrice.String(),
			v.DueDate.String(),
			string(v.CurrentStatus),
			v.CreatedOn.String(),
			v.Note,
		}
		if err := writeRow(w, row); err != nil {
			return err
		}
	}
	return nil
}

// encoding/csv only quotes when needed; the format requires quoting always.
func writeRow(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// ImportOptions controls defaults for missing values.
type ImportOptions struct {
	Today domain.Date
	Now   time.Time // seeds the generated CLI-<millis>-<line> codes
}

// Import parses a CSV document. The first record is the header. Rows are
// mapped by header name when the header is recognised, positionally
// otherwise. Any invalid row aborts the whole import with its line number.
// A CRLF inside a quoted field is read back as LF (encoding/csv).
func Import(r io.Reader, opts ImportOptions) ([]domain.CustomerInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.ErrValidation{Field: "arquivo", Message: "arquivo CSV vazio"}
	}
	if err != nil {
		return nil, &domain.ErrValidation{Field: "arquivo", Message: err.Error(), Line: 1}
	}
	index := columnIndex(header)

	millis := opts.Now.UnixMilli()
	var out []domain.CustomerInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &domain.ErrValidation{Field: "arquivo", Message: err.Error(), Line: line}
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}

		in, err := parseRow(rec, index, line, millis, opts.Today)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	if len(out) == 0 {
		return nil, &domain.ErrValidation{Field: "arquivo", Message: "nenhum cliente encontrado no arquivo"}
	}
	return out, nil
}

func parseRow(rec []string, index map[string]int, line int, millis int64, today domain.Date) (domain.CustomerInput, error) {
	// Free-text columns are kept verbatim; structured ones are trimmed.
	raw := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	get := func(col string) string { return strings.TrimSpace(raw(col)) }

	in := domain.CustomerInput{
		ExternalCode:   get("id_client"),
		Name:           raw("nome"),
		Phone:          raw("telefone"),
		MonthlyPrice:   money(get("plano_mensal")),
		QuarterlyPrice: money(get("plano_trimestral")),
		Note:           raw("observacao"),
	}
	if in.ExternalCode == "" {
		in.ExternalCode = fmt.Sprintf("CLI-%d-%d", millis, line)
	}

	tier, err := domain.ParseTier(get("servidor"))
	if err != nil {
		return in, lineErr(err, line)
	}
	in.Tier = tier

	due, err := domain.ParseDate(get("data_vencimento"))
	if err != nil {
		return in, &domain.ErrValidation{Field: "data_vencimento", Message: err.Error(), Line: line}
	}
	in.DueDate = due

	in.CreatedOn = today
	if s := get("conta_criada"); s != "" {
		created, err := domain.ParseDate(s)
		if err != nil {
			return in, &domain.ErrValidation{Field: "conta_criada", Message: err.Error(), Line: line}
		}
		in.CreatedOn = created
	}

	if err := in.Validate(); err != nil {
		return in, lineErr(err, line)
	}
	return in, nil
}

func lineErr(err error, line int) error {
	var ve *domain.ErrValidation
	if errors.As(err, &ve) {
		return &domain.ErrValidation{Field: ve.Field, Message: ve.Message, Line: line}
	}
	return err
}

func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(Header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, known := range Header {
			if h == known {
				index[h] = i
			}
		}
	}
	if len(index) == 0 {
		for i, h := range Header {
			index[h] = i
		}
	}
	return index
}

func money(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := domain.ParseMoney(s)
	if err != nil || v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
