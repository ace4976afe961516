// Package api serves the regulation store over a read-only JSON HTTP API.
//
//	GET /health
//	GET /api/status
//	GET /api/regulations
//	GET /api/regulations/{title}        preamble and entries in source order
//	GET /api/entries/{entryID}
//	GET /api/entries/{entryID}/context  ancestors, subtree and joined content
//	GET /api/hierarchy/{entryID}        {"hierarchy": "第 一 章, 第 1 條, 一、"}
//	GET /api/search?q=...&mode=literal|regex&regulation=...&limit=...&context=...&dedup=...
//
// Missing regulations and entries answer 404. A broken parent chain answers
// 500 and is logged.
package api
