package mcpserver

// CaptureContract describes how LLM consumers should capture notes so
// the graph stays useful.
const CaptureContract = `# Ansuz Note Capture Contract

Ansuz stores short, atomic notes and links them automatically by
semantic similarity. Follow these rules when capturing notes.

## Rules

1. **One idea per note.** Split compound thoughts into separate
   capture_note calls; linking works best on atomic notes.
2. **Keep it short.** A note is one to five sentences of plain text.
   No Markdown headings, no frontmatter.
3. **Pick the right type:**
   - ` + "`note`" + ` — a fact or observation (the default)
   - ` + "`idea`" + ` — a proposal or hypothesis
   - ` + "`question`" + ` — something unresolved
   - ` + "`reference`" + ` — a pointer to an external source
   - ` + "`meta`" + ` — a summary note describing a topic cluster
4. **Do not add links yourself.** Backlinks are derived from embedding
   similarity at capture time; there is no wikilink syntax.
5. **Ids are assigned by the server.** They are opaque and sortable by
   creation time; never invent or reuse one.
`
