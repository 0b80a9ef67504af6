package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knoguchi/semsearch/internal/repository"
)

// fakeRow feeds fixed column values to a scan function.
type fakeRow struct {
	id       string
	content  string
	metadata []byte
	err      error
}

func (r fakeRow) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.id
	*dest[1].(*string) = r.content
	*dest[2].(*[]byte) = r.metadata
	return nil
}

func (r fakeRow) Values() ([]any, error) { return nil, nil }

func (r fakeRow) RawValues() [][]byte { return nil }

func TestScanDocument(t *testing.T) {
	doc, err := scanDocument(fakeRow{
		id:       "42",
		content:  "Markets rally on rate cut hopes",
		metadata: []byte(`{"category": "finance"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, repository.DocumentID("42"), doc.ID)
	assert.Equal(t, "Markets rally on rate cut hopes", doc.Content)
	assert.Equal(t, "finance", doc.Metadata["category"])
}

func TestScanDocument_NullMetadata(t *testing.T) {
	doc, err := scanDocument(fakeRow{id: "1", content: "x"})
	require.NoError(t, err)
	assert.Nil(t, doc.Metadata)
}

func TestScanDocument_BadMetadata(t *testing.T) {
	_, err := scanDocument(fakeRow{id: "1", content: "x", metadata: []byte(`{`)})
	assert.Error(t, err)
}

func TestScanDocument_ScanError(t *testing.T) {
	scanErr := errors.New("conn closed")
	_, err := scanDocument(fakeRow{err: scanErr})
	assert.ErrorIs(t, err, scanErr)
}

func TestNewCorpusSource_Query(t *testing.T) {
	assert.Equal(t, DefaultCorpusQuery, NewCorpusSource(nil).query)
	assert.Contains(t, DefaultCorpusQuery, "ORDER BY id")
	assert.NotContains(t, DefaultCorpusQuery, "position")

	custom := "SELECT id::text, body, '{}'::jsonb FROM articles ORDER BY id"
	assert.Equal(t, custom, NewCorpusSource(nil, WithQuery(custom)).query)
}
