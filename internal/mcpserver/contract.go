package mcpserver

// DocumentFormatContract describes the document package format consumers
// should follow when creating or updating documents.
const DocumentFormatContract = `# Document Package Format

A document package is one JSON (.json) or YAML (.yaml, .yml) file holding a
law, a discussion or any other hierarchical text.

## Structure

` + "```" + `json
{
  "id": "constitution",
  "defaultLocale": "en",
  "locales": {
    "en": {"title": "Constitution"},
    "ar": {"title": "الدستور"}
  },
  "nodes": [
    {
      "id": 1,
      "original": {
        "locales": {
          "en": {"title": "Preamble", "text": "We the people"},
          "ar": {"title": "ديباجة", "text": "نحن الشعب"}
        }
      },
      "nodes": []
    },
    {"id": 2, "abstract": true, "nodes": [
      {"id": 3, "original": {"locales": {"en": {"title": "Article 1"}}}, "nodes": []}
    ]}
  ]
}
` + "```" + `

## Rules

1. **` + "`" + `id` + "`" + `** identifies the package. It defaults to the file name without
   extension and cannot change on update.
2. **Node ids** are strings or numbers, unique within the package.
3. **` + "`" + `locales` + "`" + `** maps a locale code to a projection with ` + "`" + `title` + "`" + ` and
   optional ` + "`" + `text` + "`" + `. ` + "`" + `defaultLocale` + "`" + ` is used when the current locale is missing.
4. **` + "`" + `abstract` + "`" + ` nodes** group children. They are skipped when moving to the
   previous or next node and carry no title.
5. **` + "`" + `nodes` + "`" + `** lists children in reading order; use an empty list for leaves.
6. Derived fields (depth, title, text, href, open) are computed on load and
   ignored on input.
7. **Encoding** is UTF-8.
`
