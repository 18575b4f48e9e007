// Package resolve merges the per-source views of a dbGaP study into one
// catalog candidate and decides whether it is complete enough to publish.
package resolve

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/gapcatalog/builder/internal/dbgap"
	"github.com/gapcatalog/builder/internal/models"
	"github.com/gapcatalog/builder/internal/seeds"
	"github.com/gapcatalog/builder/internal/sources/consent"
	"github.com/gapcatalog/builder/internal/sources/dbgapftp"
	"github.com/gapcatalog/builder/internal/sources/gap"
)

// ArchiveSource is the slice of the archive client the resolver depends on.
// A nil record with a nil error means the archive has no entry for the id.
type ArchiveSource interface {
	Record(ctx context.Context, id string) (*dbgapftp.Record, error)
}

// SummarySource is the slice of the legacy summary client the resolver
// depends on.
type SummarySource interface {
	Record(ctx context.Context, id string) (*gap.Record, error)
}

// SequenceSource supplies sequencing data types for studies the summary
// reports none for.
type SequenceSource interface {
	DataTypes(ctx context.Context, id string) ([]string, error)
}

// Verdict classifies the resolution of one identifier.
type Verdict string

const (
	// VerdictAccepted marks a candidate that passed the completeness check.
	VerdictAccepted Verdict = "accepted"
	// VerdictIncomplete marks a candidate some source knew about that still
	// failed the completeness check.
	VerdictIncomplete Verdict = "incomplete"
	// VerdictUnavailable marks an identifier no source had data for, or one
	// that is not a well-formed study id.
	VerdictUnavailable Verdict = "unavailable"
)

// Outcome is the resolver's decision for one identifier. Study is set only
// on accepted candidates; a partial merge never travels downstream.
// Unreachable lists the sources that failed during resolution so the build
// report can flag the identifier for a rerun.
type Outcome struct {
	Study       *models.Study
	Verdict     Verdict
	Unreachable []models.DataSource
}

// snpArrayTerm is synthesized when genotyping instruments imply array data
// that no curated term covers.
const snpArrayTerm = "SNP Genotypes (Array)"

// vendorKeywords mark an instrument name as a SNP genotyping array.
var vendorKeywords = []string{"affymetrix", "illumina", "axiom", "beadchip", "infinium", "omni", "perlegen"}

// Options carries the seed lookups and output bounds for a resolver.
type Options struct {
	// Platforms maps identifiers to their platform memberships. Studies
	// with at least one membership pass the completeness check without a
	// published participant count.
	Platforms map[string][]string
	// RegistryLinks maps identifiers to external registry URLs.
	RegistryLinks map[string]string
	// MaxDescriptionRunes bounds sanitized descriptions; <= 0 disables.
	MaxDescriptionRunes int
}

// Resolver resolves study identifiers against the three live sources and
// the legacy CSV dump. It is not safe for concurrent use; catalog builds
// are sequential because every provider enforces an inter-request delay.
type Resolver struct {
	archive  ArchiveSource
	summary  SummarySource
	sequence SequenceSource

	seed      *seeds.StudyCache
	platforms map[string][]string
	registry  map[string]string

	maxDescriptionRunes int

	cache map[string]*Outcome
}

// New builds a resolver over the study sources. The legacy CSV cache backs
// the fallback chain for every identifier, so a nil cache is rejected here
// instead of producing silently empty merges later.
func New(archive ArchiveSource, summary SummarySource, sequence SequenceSource, seed *seeds.StudyCache, opts Options) (*Resolver, error) {
	if seed == nil {
		return nil, errors.New("study csv cache is required")
	}

	r := &Resolver{
		archive:             archive,
		summary:             summary,
		sequence:            sequence,
		seed:                seed,
		platforms:           opts.Platforms,
		registry:            opts.RegistryLinks,
		maxDescriptionRunes: opts.MaxDescriptionRunes,
		cache:               make(map[string]*Outcome),
	}
	if r.platforms == nil {
		r.platforms = map[string][]string{}
	}
	if r.registry == nil {
		r.registry = map[string]string{}
	}
	return r, nil
}

// IsPlatformStudy reports whether the identifier has a platform membership.
func (r *Resolver) IsPlatformStudy(id string) bool {
	return len(r.platforms[id]) > 0
}

// Resolve produces the catalog decision for one identifier. Each identifier
// resolves at most once per run; later lookups return the cached outcome
// without touching the network.
func (r *Resolver) Resolve(ctx context.Context, id string) *Outcome {
	if cached, ok := r.cache[id]; ok {
		return cached
	}

	out := r.resolve(ctx, id)
	r.cache[id] = out
	return out
}

func (r *Resolver) resolve(ctx context.Context, id string) *Outcome {
	out := &Outcome{}

	// Malformed identifiers never reach the network.
	if !dbgap.ValidID(id) {
		out.Verdict = VerdictUnavailable
		return out
	}

	var archiveRec *dbgapftp.Record
	if rec, err := r.archive.Record(ctx, id); err != nil {
		out.Unreachable = append(out.Unreachable, models.SourceArchive)
	} else {
		archiveRec = rec
	}

	var summaryRec *gap.Record
	if rec, err := r.summary.Record(ctx, id); err != nil {
		out.Unreachable = append(out.Unreachable, models.SourceSummary)
	} else {
		summaryRec = rec
	}

	row, haveRow := r.seed.Lookup(id)
	if archiveRec == nil && summaryRec == nil && !haveRow {
		out.Verdict = VerdictUnavailable
		return out
	}

	study := r.merge(ctx, id, archiveRec, summaryRec, row, out)

	// Platform studies are curatorially important even before participant
	// counts are published, so membership substitutes for a count.
	if study.Title == "" || (!r.IsPlatformStudy(id) && study.ParticipantCount == 0) {
		out.Verdict = VerdictIncomplete
		return out
	}

	out.Verdict = VerdictAccepted
	out.Study = study
	return out
}

// merge applies the source-priority policy field by field. The archive's
// newest release wins for document-derived fields, the summary API for
// curated vocabularies and counts, and the legacy dump backs both.
func (r *Resolver) merge(ctx context.Context, id string, archive *dbgapftp.Record, summary *gap.Record, row seeds.StudyRow, out *Outcome) *models.Study {
	study := &models.Study{
		DbGapID:          id,
		StudyDesigns:     models.StringArray{},
		DataTypes:        models.StringArray{},
		ConsentCodes:     models.StringArray{},
		ConsentLongNames: models.StringMap{},
	}

	switch {
	case archive != nil && archive.Title != "":
		study.Title = archive.Title
	case summary != nil && summary.Title != "":
		study.Title = summary.Title
	default:
		study.Title = row.Name
	}

	switch {
	case archive != nil && archive.Accession != "":
		study.Accession = archive.Accession
	case summary != nil && summary.Accession != "":
		study.Accession = summary.Accession
	default:
		study.Accession = id
	}

	description := row.Description
	if archive != nil && archive.Description != "" {
		description = archive.Description
	}
	study.Description = dbgap.SanitizeDescription(dbgap.NormalizeText(description), r.maxDescriptionRunes)

	// Consent groups come from the archive document; the legacy dump fills
	// in for studies the archive does not cover. Sub-studies legitimately
	// end up with none.
	var codes []string
	names := map[string]string{}
	if archive != nil {
		codes = archive.ConsentCodes
		for code, name := range archive.ConsentNames {
			names[code] = name
		}
	} else {
		codes = dbgap.ParseConsentCodes(row.Consent)
	}
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		study.ConsentCodes = append(study.ConsentCodes, code)
		if name := names[code]; name != "" {
			study.ConsentLongNames[code] = name
		} else {
			study.ConsentLongNames[code] = consent.LongName(code)
		}
	}

	switch {
	case archive != nil && len(archive.StudyDesigns) > 0:
		study.StudyDesigns = append(study.StudyDesigns, archive.StudyDesigns...)
	case summary != nil && len(summary.StudyDesigns) > 0:
		study.StudyDesigns = append(study.StudyDesigns, summary.StudyDesigns...)
	default:
		study.StudyDesigns = append(study.StudyDesigns, dbgap.ParseStudyDesign(row.Design)...)
	}

	study.DataTypes = append(study.DataTypes, r.mergeDataTypes(ctx, id, archive, summary, row, out)...)

	if summary != nil && summary.ParticipantCount > 0 {
		study.ParticipantCount = summary.ParticipantCount
	} else {
		study.ParticipantCount = dbgap.ParseParticipantCount(row.Content)
	}

	if summary != nil && summary.Focus != "" {
		study.Focus = summary.Focus
	} else {
		study.Focus = dbgap.ParseFocus(row.Disease)
	}

	if archive != nil {
		study.ParentStudyID = archive.ParentAccession
	}

	if tags := r.platforms[id]; len(tags) > 0 {
		study.Platforms = append(models.StringArray{}, tags...)
	} else {
		study.Platforms = models.StringArray{string(models.PlatformDirect)}
	}
	study.RegistryURL = r.registry[id]

	return study
}

// mergeDataTypes prefers the summary API's curated terms. When the summary
// reports none, the legacy dump seeds the list and the sequence archive
// contributes strategies not already present. A SNP array term is
// synthesized when genotyping instruments exist but no SNP or genotype
// term does. The result is sorted.
func (r *Resolver) mergeDataTypes(ctx context.Context, id string, archive *dbgapftp.Record, summary *gap.Record, row seeds.StudyRow, out *Outcome) []string {
	var dataTypes []string
	if summary != nil && len(summary.DataTypes) > 0 {
		dataTypes = append(dataTypes, summary.DataTypes...)
	} else {
		dataTypes = append(dataTypes, dbgap.ParseDataTypes(row.DataTypes)...)

		seqTypes, err := r.sequence.DataTypes(ctx, id)
		if err != nil {
			out.Unreachable = append(out.Unreachable, models.SourceSRA)
		}
		dataTypes = mergeAbsent(dataTypes, seqTypes)
	}

	if !hasSNPTerm(dataTypes) && hasGenotypingArray(collectInstruments(archive, summary)) {
		dataTypes = append(dataTypes, snpArrayTerm)
	}

	sort.Strings(dataTypes)
	return dataTypes
}

func collectInstruments(archive *dbgapftp.Record, summary *gap.Record) []string {
	var out []string
	if archive != nil {
		out = append(out, archive.Instruments...)
	}
	if summary != nil {
		out = append(out, summary.Instruments...)
	}
	return out
}

func hasGenotypingArray(instruments []string) bool {
	for _, inst := range instruments {
		lower := strings.ToLower(inst)
		for _, kw := range vendorKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func hasSNPTerm(types []string) bool {
	for _, t := range types {
		lower := strings.ToLower(t)
		if strings.Contains(lower, "snp") || strings.Contains(lower, "genotype") {
			return true
		}
	}
	return false
}

func mergeAbsent(base, extra []string) []string {
	present := make(map[string]bool, len(base))
	for _, b := range base {
		present[b] = true
	}
	for _, e := range extra {
		if e == "" || present[e] {
			continue
		}
		present[e] = true
		base = append(base, e)
	}
	return base
}
