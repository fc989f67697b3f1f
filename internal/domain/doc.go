// Package domain models the Swedish school-unit register and the transform
// rules that turn raw register data into the published snapshot.
//
// # Data Source
//
// School units come from the Skolverket Planned Educations API (v3): a
// paginated listing of ~6,500 units, plus per-unit detail and statistics
// sub-resources. Statistics are split by stage: "gr" covers grundskola
// (grades 1-9) and "gy" covers gymnasieskola (upper secondary). Either
// block, and the detail record itself, may legitimately not exist for a
// unit; the register includes preschools, adult education and units that
// never report statistics.
//
// # Value Conventions
//
// Observation values are Swedish-formatted strings with comma as the
// decimal separator: "217,6" means 217.6. The register uses "." and "-" as
// no-value sentinels, and every observation carries a valueType marker;
// only "EXISTS" entries are usable. Suppressed values (small cohorts fall
// under privacy thresholds) must be skipped, never read as zero.
//
// Merit rating (meritvärde) is the grade-9 aggregate score on a 0-340
// scale. Ratios are percentages in 0-100.
//
// # Classification
//
// Each unit gets exactly one category out of F-9, 7-9, F-6, gymnasium,
// anpassad and other. See [Classify] for the precedence order; statistics
// presence outranks declared schooling-type metadata, which outranks name
// keywords.
//
// # Snapshot Ordering
//
// The published list is sorted by category priority, then descending merit
// rating (grade-6 pass rate for units without grade 9), then unit code, so
// reprocessing identical raw data is byte-stable except for the processing
// timestamp. See [SortSchools] and [BuildSnapshot].
package domain
