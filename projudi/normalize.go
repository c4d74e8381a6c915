package projudi

import (
	"fmt"
	"time"
)

// Notification is the strict internal record produced from a loosely-typed
// court-system payload. External records remain open maps until this
// boundary; everything downstream works with this type.
type Notification struct {
	ExternalID        string
	NumeroProcesso    string
	Orgao             string
	Assunto           string
	Status            string
	Prazo             *time.Time
	RecebidaEm        *time.Time
	FonteCriadaEm     *time.Time
	FonteAtualizadaEm *time.Time
	Payload           map[string]any
}

// fieldSpec binds one logical field to its ordered candidate keys. The
// first candidate that yields a non-empty value wins.
type fieldSpec struct {
	candidates []string
	assign     func(n *Notification, v any) bool
}

var notificationFields = []fieldSpec{
	{
		candidates: []string{"id", "intimacaoId", "idIntimacao", "codigo", "externalId"},
		assign:     func(n *Notification, v any) bool { return setString(&n.ExternalID, v) },
	},
	{
		candidates: []string{"numeroProcesso", "numero_processo", "processo", "numProcesso"},
		assign:     func(n *Notification, v any) bool { return setString(&n.NumeroProcesso, v) },
	},
	{
		candidates: []string{"orgao", "vara", "unidade", "comarca"},
		assign:     func(n *Notification, v any) bool { return setString(&n.Orgao, v) },
	},
	{
		candidates: []string{"assunto", "descricao", "titulo"},
		assign:     func(n *Notification, v any) bool { return setString(&n.Assunto, v) },
	},
	{
		candidates: []string{"status", "situacao"},
		assign:     func(n *Notification, v any) bool { return setString(&n.Status, v) },
	},
	{
		candidates: []string{"prazo", "dataPrazo", "prazoFinal", "dataLimite"},
		assign:     func(n *Notification, v any) bool { return setTime(&n.Prazo, v) },
	},
	{
		candidates: []string{"recebidaEm", "recebida_em", "dataRecebimento"},
		assign:     func(n *Notification, v any) bool { return setTime(&n.RecebidaEm, v) },
	},
	{
		candidates: []string{"criadaEm", "dataCriacao", "createdAt", "created_at"},
		assign:     func(n *Notification, v any) bool { return setTime(&n.FonteCriadaEm, v) },
	},
	{
		candidates: []string{"atualizadaEm", "dataAtualizacao", "updatedAt", "updated_at"},
		assign:     func(n *Notification, v any) bool { return setTime(&n.FonteAtualizadaEm, v) },
	},
}

// Normalize converts a raw court-system record into a Notification. The
// original record is preserved as the opaque payload. A record with no
// resolvable external id yields ExternalID == "" and must be skipped by the
// caller.
func Normalize(raw map[string]any) Notification {
	n := Notification{Payload: raw}

	for _, field := range notificationFields {
		for _, key := range field.candidates {
			v, ok := raw[key]
			if !ok || v == nil {
				continue
			}
			if field.assign(&n, v) {
				break
			}
		}
	}

	return n
}

func setString(dst *string, v any) bool {
	switch value := v.(type) {
	case string:
		if value == "" {
			return false
		}
		*dst = value
		return true
	case float64:
		// Numeric ids arrive as JSON numbers
		if value == float64(int64(value)) {
			*dst = fmt.Sprintf("%d", int64(value))
		} else {
			*dst = fmt.Sprintf("%v", value)
		}
		return true
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func setTime(dst **time.Time, v any) bool {
	switch value := v.(type) {
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				*dst = &t
				return true
			}
		}
	case float64:
		// Epoch milliseconds
		if value > 0 {
			t := time.UnixMilli(int64(value)).UTC()
			*dst = &t
			return true
		}
	}
	return false
}
