// ABOUTME: Request and response shapes shared by the gRPC and REST transports
// ABOUTME: Addresses and agent keys travel as strings and are parsed on conversion

package api

// ProcessDTO is one (type, name) pair of a unit's process list
type ProcessDTO struct {
	Type string `json:"type" yaml:"type" validate:"required"`
	Name string `json:"name" yaml:"name" validate:"required"`
}

// UnitDTO is the wire form of a unit
type UnitDTO struct {
	Parents          []string          `json:"parents" yaml:"parents" validate:"dive,unitpath"`
	Version          string            `json:"version" yaml:"version" validate:"required,max=64"`
	ShortName        string            `json:"shortName" yaml:"shortName" validate:"max=256"`
	PathAbbreviation string            `json:"pathAbbreviation" yaml:"pathAbbreviation" validate:"max=10,segment"`
	Stewards         []string          `json:"stewards" yaml:"stewards"`
	Processes        []ProcessDTO      `json:"processes" yaml:"processes" validate:"dive"`
	History          map[string]string `json:"history" yaml:"history"`
	Meta             map[string]string `json:"meta" yaml:"meta"`
}

// SectionDTO is the wire form of a document section
type SectionDTO struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	SectionType string `json:"sectionType" yaml:"sectionType"`
	ContentType string `json:"contentType" yaml:"contentType"`
	SourcePath  string `json:"sourcePath" yaml:"sourcePath"`
	SourceUnit  string `json:"sourceUnit,omitempty" yaml:"sourceUnit"`
	Content     string `json:"content" yaml:"content"`
}

// DocumentDTO is the wire form of a document
type DocumentDTO struct {
	UnitHash     string            `json:"unitHash,omitempty" yaml:"unitHash"`
	DocumentType string            `json:"documentType" yaml:"documentType" validate:"required"`
	State        string            `json:"state" yaml:"state"`
	Editors      []string          `json:"editors" yaml:"editors"`
	Content      []SectionDTO      `json:"content" yaml:"content" validate:"dive"`
	Meta         map[string]string `json:"meta" yaml:"meta"`
}

// UnitView is a listed unit
type UnitView struct {
	Hash      string  `json:"hash"`
	Unit      UnitDTO `json:"unit"`
	State     string  `json:"state,omitempty"`
	Version   string  `json:"version,omitempty"`
	Path      string  `json:"path"`
	Author    string  `json:"author"`
	Timestamp string  `json:"timestamp"`
}

// DocumentView is a listed document
type DocumentView struct {
	Hash      string      `json:"hash"`
	Document  DocumentDTO `json:"document"`
	Author    string      `json:"author"`
	Timestamp string      `json:"timestamp"`
}

// TreeView is one node of the unit tree
type TreeView struct {
	Path     string     `json:"path"`
	Segment  string     `json:"segment"`
	Units    []UnitView `json:"units"`
	Children []TreeView `json:"children"`
}

type CreateUnitRequest struct {
	Unit UnitDTO `json:"unit"`
}

type CreateUnitResponse struct {
	Hash string `json:"hash"`
}

type GetUnitsRequest struct{}

type GetUnitsResponse struct {
	Units []UnitView `json:"units"`
}

type GetUnitRequest struct {
	Hash string `json:"hash" validate:"required"`
}

type GetUnitResponse struct {
	Unit UnitView `json:"unit"`
}

type AdvanceStateRequest struct {
	Hash  string `json:"hash" validate:"required"`
	State string `json:"state" validate:"required,max=64,excludes=-"`
}

type AdvanceStateResponse struct{}

type DeleteUnitLinksRequest struct {
	Hash string `json:"hash" validate:"required"`
}

type DeleteUnitLinksResponse struct{}

type CreateDocumentRequest struct {
	Path     string      `json:"path" yaml:"path" validate:"required,unitpath"`
	Document DocumentDTO `json:"document" yaml:"document"`
}

type CreateDocumentResponse struct {
	Hash string `json:"hash"`
}

type GetDocumentsRequest struct {
	Path string `json:"path" validate:"required,unitpath"`
}

type GetDocumentsResponse struct {
	Documents []DocumentView `json:"documents"`
}

type GetTreeRequest struct{}

type GetTreeResponse struct {
	Root TreeView `json:"root"`
}

// SeedUnit is a unit of a seed file with the state it starts in
type SeedUnit struct {
	State string  `yaml:"state" validate:"max=64,excludes=-"`
	Unit  UnitDTO `yaml:"unit"`
}

// SeedFile is the YAML document read by the seed command
type SeedFile struct {
	Units     []SeedUnit              `yaml:"units" validate:"dive"`
	Documents []CreateDocumentRequest `yaml:"documents" validate:"dive"`
}

// ErrorResponse is the REST error body
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// Hash is set when an entry was written before the failure
	Hash string `json:"hash,omitempty"`
}
