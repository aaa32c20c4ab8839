package mysql

const insertReportSQL = `
INSERT INTO report_archive (source, identifier, total_reviews, generated_at, report)
VALUES (?, ?, ?, ?, ?)
`

// Repeated misses for the same lookup bump a counter instead of adding rows.
const insertMissSQL = `
INSERT INTO source_misses (source, mode, lookup_key, kind, reason)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  kind    = VALUES(kind),
  reason  = VALUES(reason),
  hits    = hits + 1,
  seen_at = CURRENT_TIMESTAMP(3)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const listReportsSQL = `
SELECT id, source, identifier, report, created_at
FROM report_archive
WHERE source = ? AND identifier = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`
