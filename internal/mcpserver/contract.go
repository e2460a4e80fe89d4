package mcpserver

// ClipFormatContract describes how clips and daily notes are laid out on
// disk, for LLM consumers reading or creating clips.
const ClipFormatContract = `# Clipper Clip Format

Every clip is one Markdown file under ` + "`" + `<root>/clippings/` + "`" + `, written once and never
edited afterwards.

## File name

` + "`" + `<YYYY-MM-DD HH:mm> <title>.md` + "`" + `, local capture time, minute precision.
The title is trimmed, each of ` + "`" + `: / \ ? % * | " < >` + "`" + ` is replaced with ` + "`" + `-` + "`" + `, and it is
cut to 50 characters. An empty title becomes ` + "`" + `Untitled` + "`" + `. Two clips with the same
title in the same minute share a file; the later one wins.

## Structure

` + "```" + `markdown
---
title: "Original page title"
url: "https://example.com/article"
date: "2024-01-01T00:00:00Z"
author: "Optional author"
keywords: ["optional", "list"]
clipped_at: 2024-01-01T00:05:00Z
excerpt: "Optional short summary"
---

# Original page title

Clipped content as Markdown.
` + "```" + `

Field order is fixed. String values are double-quoted with ` + "`" + `\` + "`" + `, ` + "`" + `"` + "`" + ` and newlines
escaped. ` + "`" + `author` + "`" + `, ` + "`" + `keywords` + "`" + ` and ` + "`" + `excerpt` + "`" + ` are omitted when absent.

## Daily notes

Each saved clip adds one line to ` + "`" + `<root>/daily/<YYYY-MM-DD>.md` + "`" + ` (or ` + "`" + `Daily/` + "`" + ` when that
folder already exists), directly under the ` + "`" + `## Clippings` + "`" + ` heading, so the newest entry
is always first:

` + "```" + `markdown
## Clippings
- 00:05 - [[clippings/2024-01-01 00:05 Original page title]] - https://example.com/article
` + "```" + `

## Saving through tools

Use ` + "`" + `save_clip` + "`" + ` with ` + "`" + `content` + "`" + ` and a ` + "`" + `metadata` + "`" + ` object carrying ` + "`" + `title` + "`" + `, ` + "`" + `url` + "`" + ` and
optionally ` + "`" + `author` + "`" + `, ` + "`" + `keywords` + "`" + `, ` + "`" + `date` + "`" + `, ` + "`" + `excerpt` + "`" + `. Do not write clip files by hand.
`
