// Package intimacao persists court notification records and runs the
// incremental fetch against the court-system adapter.
package intimacao

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/projudi"
)

// OrigemProjudi is the source tag for records ingested from Projudi.
const OrigemProjudi = "projudi"

// Intimacao is a stored court notification, keyed by (origem, external_id).
type Intimacao struct {
	ID                string
	Origem            string
	ExternalID        string
	NumeroProcesso    string
	Orgao             string
	Assunto           string
	Status            string
	Prazo             *time.Time
	RecebidaEm        *time.Time
	FonteCriadaEm     *time.Time
	FonteAtualizadaEm *time.Time
	Payload           json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Store handles persistence of intimação rows.
type Store struct {
	db *sql.DB
}

// NewStore creates a new intimação store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts or merges a normalized notification by its natural key.
// Merge semantics are COALESCE: incoming non-null values overwrite, incoming
// nulls preserve the stored value. updated_at is always refreshed. Returns
// whether the row was inserted (as opposed to updated).
func (s *Store) Upsert(origem string, n projudi.Notification) (bool, error) {
	if n.ExternalID == "" {
		return false, errors.New("notification has no external id")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var payload any
	if n.Payload != nil {
		encoded, err := json.Marshal(n.Payload)
		if err != nil {
			return false, errors.Wrap(err, "marshal payload")
		}
		payload = string(encoded)
	}

	var existing int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM intimacoes WHERE origem = ? AND external_id = ?
	`, origem, n.ExternalID).Scan(&existing)
	if err != nil {
		return false, errors.Wrap(err, "check existing intimacao")
	}

	_, err = s.db.Exec(`
		INSERT INTO intimacoes (
			id, origem, external_id, numero_processo, orgao, assunto, status,
			prazo, recebida_em, fonte_criada_em, fonte_atualizada_em, payload,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (origem, external_id) DO UPDATE SET
			numero_processo = COALESCE(excluded.numero_processo, numero_processo),
			orgao = COALESCE(excluded.orgao, orgao),
			assunto = COALESCE(excluded.assunto, assunto),
			status = COALESCE(excluded.status, status),
			prazo = COALESCE(excluded.prazo, prazo),
			recebida_em = COALESCE(excluded.recebida_em, recebida_em),
			fonte_criada_em = COALESCE(excluded.fonte_criada_em, fonte_criada_em),
			fonte_atualizada_em = COALESCE(excluded.fonte_atualizada_em, fonte_atualizada_em),
			payload = COALESCE(excluded.payload, payload),
			updated_at = excluded.updated_at
	`,
		uuid.NewString(),
		origem,
		n.ExternalID,
		nullString(n.NumeroProcesso),
		nullString(n.Orgao),
		nullString(n.Assunto),
		nullString(n.Status),
		nullTime(n.Prazo),
		nullTime(n.RecebidaEm),
		nullTime(n.FonteCriadaEm),
		nullTime(n.FonteAtualizadaEm),
		payload,
		now,
		now,
	)
	if err != nil {
		return false, errors.Wrapf(err, "upsert intimacao %s/%s", origem, n.ExternalID)
	}

	return existing == 0, nil
}

// GetByNaturalKey retrieves a stored intimação, or nil when absent.
func (s *Store) GetByNaturalKey(origem, externalID string) (*Intimacao, error) {
	var i Intimacao
	var numeroProcesso, orgao, assunto, status sql.NullString
	var prazo, recebidaEm, fonteCriadaEm, fonteAtualizadaEm sql.NullString
	var payload sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRow(`
		SELECT id, origem, external_id, numero_processo, orgao, assunto, status,
		       prazo, recebida_em, fonte_criada_em, fonte_atualizada_em, payload,
		       created_at, updated_at
		FROM intimacoes
		WHERE origem = ? AND external_id = ?
	`, origem, externalID).Scan(
		&i.ID,
		&i.Origem,
		&i.ExternalID,
		&numeroProcesso,
		&orgao,
		&assunto,
		&status,
		&prazo,
		&recebidaEm,
		&fonteCriadaEm,
		&fonteAtualizadaEm,
		&payload,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get intimacao %s/%s", origem, externalID)
	}

	i.NumeroProcesso = numeroProcesso.String
	i.Orgao = orgao.String
	i.Assunto = assunto.String
	i.Status = status.String
	if payload.Valid {
		i.Payload = json.RawMessage(payload.String)
	}

	for _, field := range []struct {
		src  sql.NullString
		dst  **time.Time
		name string
	}{
		{prazo, &i.Prazo, "prazo"},
		{recebidaEm, &i.RecebidaEm, "recebida_em"},
		{fonteCriadaEm, &i.FonteCriadaEm, "fonte_criada_em"},
		{fonteAtualizadaEm, &i.FonteAtualizadaEm, "fonte_atualizada_em"},
	} {
		if !field.src.Valid {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, field.src.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s for intimacao %s", field.name, externalID)
		}
		*field.dst = &t
	}

	if i.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, errors.Wrap(err, "parse created_at")
	}
	if i.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, errors.Wrap(err, "parse updated_at")
	}

	return &i, nil
}

// List returns the most recently updated intimações, newest first.
func (s *Store) List(limit int) ([]Intimacao, error) {
	rows, err := s.db.Query(`
		SELECT origem, external_id FROM intimacoes
		ORDER BY updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list intimacoes")
	}
	defer rows.Close()

	type key struct{ origem, externalID string }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.origem, &k.externalID); err != nil {
			return nil, errors.Wrap(err, "scan intimacao key")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]Intimacao, 0, len(keys))
	for _, k := range keys {
		item, err := s.GetByNaturalKey(k.origem, k.externalID)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

// Count returns the number of stored intimações.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM intimacoes").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count intimacoes")
	}
	return count, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
