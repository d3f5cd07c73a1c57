package mcpserver

// ProgressFormatContract describes the reading-progress record and how the
// two replicas are reconciled, for LLM consumers reading or reasoning about
// progress.
const ProgressFormatContract = `# Folio Progress Format

Reading progress is stored per document, keyed by the document's content
hash (lowercase hex SHA-256 of the file bytes). Renaming or moving a file does
not change its hash, so its progress survives.

## Record

` + "```" + `json
{
  "hash": "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
  "current_page": 42,
  "total_pages": 300,
  "zoom": 1.25,
  "scroll_mode": "continuous",
  "scroll_position": 0.5,
  "last_read": "2024-05-01T10:00:00.000Z",
  "version": 7
}
` + "```" + `

## Fields

1. **hash** is required, lowercase hex, at most 64 characters.
2. **current_page** is 1-based. New records start at page 1.
3. **zoom** defaults to 1.0 and is never negative.
4. **scroll_mode** is ` + "`" + `continuous` + "`" + ` or ` + "`" + `single` + "`" + `.
5. **last_read** is always stored as UTC with millisecond precision in the
   exact layout shown above. Other RFC 3339 inputs are normalized on save.
6. **version** is assigned by the server: every save sets it to the stored
   version plus one. Values sent by clients are ignored.

## Replicas

There are two copies of every record:

- **Local** lives with the application data and is written on every save.
- **Central** lives in the shared library folder (for example a cloud-synced
  directory) and is only written by synchronization.

Synchronization compares the two copies:

- the higher ` + "`" + `version` + "`" + ` wins;
- on equal versions the later ` + "`" + `last_read` + "`" + ` wins;
- when both are equal nothing is written.

The winner is copied onto the other side. ` + "`" + `load_progress` + "`" + ` always
synchronizes first, so it returns the newest copy available. When the
Central folder is missing, Local is used alone.
`
