package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/substrate"
)

func validUnit() UnitDTO {
	return UnitDTO{
		Parents:          []string{"hc_system.conductor"},
		Version:          "vidx1",
		ShortName:        "App API",
		PathAbbreviation: "app",
		Stewards:         []string{substrate.Address{1}.String()},
		Processes:        []ProcessDTO{{Type: "soc_proto.procs.define", Name: "petition"}},
		History:          map[string]string{"vidx0": substrate.Address{2}.String()},
		Meta:             map[string]string{"k": "v"},
	}
}

func TestValidateUnit(t *testing.T) {
	require.NoError(t, Validate(CreateUnitRequest{Unit: validUnit()}))

	tests := []struct {
		name   string
		mutate func(*UnitDTO)
		field  string
	}{
		{"missing version", func(u *UnitDTO) { u.Version = "" }, "Version"},
		{"abbreviation too long", func(u *UnitDTO) { u.PathAbbreviation = "abcdefghijk" }, "PathAbbreviation"},
		{"abbreviation with dot", func(u *UnitDTO) { u.PathAbbreviation = "a.b" }, "PathAbbreviation"},
		{"empty parent", func(u *UnitDTO) { u.Parents = []string{".."} }, "Parents[0]"},
		{"process without name", func(u *UnitDTO) { u.Processes = []ProcessDTO{{Type: "t"}} }, "Processes[0].Name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := validUnit()
			tt.mutate(&u)
			err := Validate(CreateUnitRequest{Unit: u})
			require.ErrorIs(t, err, ErrInvalidRequest)
			assert.Contains(t, err.Error(), tt.field)
			assert.Equal(t, KindInvalid, Classify(err))
		})
	}
}

func TestValidateRequests(t *testing.T) {
	assert.ErrorIs(t, Validate(AdvanceStateRequest{Hash: "x"}), ErrInvalidRequest)
	assert.ErrorIs(t, Validate(AdvanceStateRequest{Hash: "x", State: "in-review"}), ErrInvalidRequest)
	assert.NoError(t, Validate(AdvanceStateRequest{Hash: "x", State: catalog.AliveState}))
	assert.ErrorIs(t, Validate(GetDocumentsRequest{Path: "."}), ErrInvalidRequest)
	assert.NoError(t, Validate(GetDocumentsRequest{Path: "hc_system"}))
	assert.ErrorIs(t, Validate(CreateDocumentRequest{Path: "a", Document: DocumentDTO{}}), ErrInvalidRequest)
}

func TestUnitConversionRoundtrip(t *testing.T) {
	in := validUnit()
	u, err := in.ToUnit()
	require.NoError(t, err)
	assert.Equal(t, substrate.AgentKey{1}, u.Stewards[0])
	assert.Equal(t, substrate.Address{2}, u.History["vidx0"])
	assert.Equal(t, "hc_system.conductor.app", u.PathString())

	assert.Equal(t, in, UnitFromCatalog(u))
}

func TestMalformedStewardIsAgentTag(t *testing.T) {
	in := validUnit()
	in.Stewards = []string{"not-a-key"}
	_, err := in.ToUnit()
	require.ErrorIs(t, err, catalog.ErrAgentTag)
	assert.Equal(t, KindInvalid, Classify(err))
}

func TestDocumentConversion(t *testing.T) {
	src := substrate.Address{3}.String()
	in := DocumentDTO{
		UnitHash:     substrate.Address{4}.String(),
		DocumentType: catalog.DocDocument,
		State:        "define",
		Editors:      []string{substrate.Address{5}.String()},
		Content: []SectionDTO{
			{Name: "title", SectionType: "text", ContentType: "text/plain", Content: "x"},
			{Name: "src", SourceUnit: src},
		},
	}
	doc, err := in.ToDocument()
	require.NoError(t, err)
	require.NotNil(t, doc.Content[1].SourceUnit)
	assert.Nil(t, doc.Content[0].SourceUnit)
	assert.Equal(t, in, DocumentFromCatalog(doc))

	in.Editors = []string{"bogus"}
	_, err = in.ToDocument()
	assert.ErrorIs(t, err, catalog.ErrAgentTag)

	in.Editors = nil
	in.UnitHash = ""
	doc, err = in.ToDocument()
	require.NoError(t, err)
	assert.True(t, doc.UnitHash.IsZero())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNotFound, Classify(fmt.Errorf("wrap: %w", catalog.ErrDocumentNotFound)))
	assert.Equal(t, KindNotFound, Classify(catalog.ErrMissingPath))
	assert.Equal(t, KindInvalid, Classify(catalog.ErrEncoding))
	_, err := ParseHash("nope")
	assert.Equal(t, KindInvalid, Classify(err))
	assert.Equal(t, KindInvalid, Classify(catalog.CheckState("in-review")))
	assert.Equal(t, KindInternal, Classify(errors.New("disk on fire")))
	assert.Equal(t, "not_found", KindNotFound.String())
}

func TestSeedFileConversion(t *testing.T) {
	f := SeedFile{
		Units: []SeedUnit{{State: catalog.AliveState, Unit: UnitDTO{PathAbbreviation: "hc_system", Version: "v1"}}},
		Documents: []CreateDocumentRequest{{
			Path:     "hc_system",
			Document: DocumentDTO{DocumentType: catalog.DocTemplate},
		}},
	}
	seed, err := f.ToInitialization()
	require.NoError(t, err)
	require.Len(t, seed.Units, 1)
	assert.Equal(t, catalog.AliveState, seed.Units[0].State)
	require.Len(t, seed.Documents, 1)
	assert.Equal(t, "hc_system", seed.Documents[0].Path)

	f.Units[0].State = "in-review"
	_, err = f.ToInitialization()
	assert.ErrorIs(t, err, ErrInvalidRequest)

	f.Units[0].State = catalog.AliveState
	f.Units[0].Unit.Version = ""
	_, err = f.ToInitialization()
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

// stubCatalog answers the calls a test sets and panics on the rest
type stubCatalog struct {
	Catalog
	createHash substrate.Address
	createErr  error
	outputs    []catalog.UnitOutput
}

func (c *stubCatalog) CreateUnit(context.Context, catalog.Unit) (substrate.Address, error) {
	return c.createHash, c.createErr
}

func (c *stubCatalog) GetUnitOutputs(context.Context) ([]catalog.UnitOutput, error) {
	return c.outputs, nil
}

func TestCreateUnitPartialWrite(t *testing.T) {
	hash := substrate.Address{6}
	boom := errors.New("index unavailable")
	svc := NewService(&stubCatalog{createHash: hash, createErr: boom}, nil)

	resp, err := svc.CreateUnit(context.Background(), &CreateUnitRequest{Unit: validUnit()})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, KindInternal, Classify(err))

	var partial *PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, hash.String(), partial.Hash)
	assert.Contains(t, err.Error(), hash.String())

	svc = NewService(&stubCatalog{createErr: boom}, nil)
	_, err = svc.CreateUnit(context.Background(), &CreateUnitRequest{Unit: validUnit()})
	assert.False(t, errors.As(err, &partial))
}

func TestServiceLogsCatalogOperations(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(logger.Config{Level: "debug", Output: &buf})
	svc := NewService(&stubCatalog{outputs: make([]catalog.UnitOutput, 2)}, log)

	_, err := svc.GetUnits(context.Background(), &GetUnitsRequest{})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "catalog", line["component"])
	assert.Equal(t, "GetUnits", line["operation"])
	assert.EqualValues(t, 2, line["count"])
	buf.Reset()

	_, err = svc.GetUnit(context.Background(), &GetUnitRequest{Hash: "nope"})
	require.Error(t, err)
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "GetUnit", line["operation"])
	assert.EqualValues(t, 0, line["count"])
}
