package mcpserver

// DiagramFormatContract describes the diagram source accepted by the board
// compiler. LLM consumers should follow it when creating boards from
// source.
const DiagramFormatContract = `# Raido Diagram Format Contract

Diagram source is a Mermaid-style text DSL. The first non-empty line names
the grammar; everything after it describes nodes and connections. The
compiler lays the diagram out and turns it into board elements.

## Structure

` + "```" + `
---
title: Release pipeline            # OPTIONAL – becomes the board title
---
flowchart LR
  plan[Plan] --> build(Build)
  build --> ship{Ship?}
  ship -->|yes| done((Done))
` + "```" + `

## Grammars

| Header                              | Kind      |
|-------------------------------------|-----------|
| ` + "`flowchart <dir>`, `graph <dir>`" + `      | flowchart |
| ` + "`sequenceDiagram`" + `                   | sequence  |
| ` + "`classDiagram`" + `                      | class     |
| ` + "`stateDiagram-v2`, `stateDiagram`" + `   | state     |
| ` + "`erDiagram`" + `                         | er        |

## Flowchart

- Directions: ` + "`TD`, `TB`, `BT`, `LR`, `RL`" + `.
- Node shapes: ` + "`id[rect]`, `id(rounded)`, `id{diamond}`, `id((circle))`, `id([stadium])`, `id[[subroutine]]`, `id[(cylinder)]`, `id{{hexagon}}`, `id>flag]`" + `.
- Links: ` + "`-->`, `---`, `-.->`, `==>`, `--o`, `--x`" + `; labels as ` + "`A -->|label| B`" + ` or ` + "`A -- label --> B`" + `.
- ` + "`classDef`, `class`, `style`, `linkStyle`, `click`" + ` lines are accepted and ignored.

## Sequence

- ` + "`participant A as Alice`" + ` or ` + "`actor A`" + ` declare lifelines.
- Messages: ` + "`A->>B: text`" + ` with arrows ` + "`->`, `-->`, `->>`, `-->>`, `-x`, `--x`, `-)`, `--)`" + `.
- Block keywords (` + "`loop`, `alt`, `note`, `activate`, ..." + `) are accepted and ignored.

## Class

- ` + "`class Name`" + ` or ` + "`class Name { +field\\n +method() }`" + `.
- Relations: ` + "`<|--`, `*--`, `o--`, `-->`, `--`, `..>`, `..|>`, `..`" + ` with optional ` + "`: label`" + `.

## State

- ` + "`state \"Long name\" as S1`" + `, ` + "`[*] --> S1`" + `, ` + "`S1 --> S2: event`" + `.

## ER

- Entities ` + "`CUSTOMER { string name }`" + `; relations ` + "`CUSTOMER ||--o{ ORDER : places`" + `.

## Rules

1. **The header line is mandatory** unless a kind is passed explicitly.
2. **Every connection endpoint must be declared.** A target that only
   appears as a bare id (for example ` + "`A[Start] --> Z`" + ` with no ` + "`Z[...]`" + `)
   is reported as an error by strict validation.
3. **Ids** are letters, digits and underscores; labels may contain spaces.
4. Unknown statements are skipped and reported as warnings, never silently
   dropped.
5. Validate with the ` + "`validate_diagram`" + ` tool before creating a board; every
   error is reported at once with its line number.
`
