// Package presenter turns activity records into presentation results ready for a view
// layer.
//
// # Overview
//
// A Presenter resolves referenced entities once per batch, diffs every record and exposes
// labels on the results. Three entry points share that pipeline:
//
//   - Present: a single record
//   - PresentBatch: many records with one fetch per entity type
//   - PresentGrouped: a paginated "latest record per group" listing
//
// # Usage Example
//
//	p := presenter.New(cfg.Resolution, registry,
//		presenter.WithTranslator(catalog),
//		presenter.WithLogger(logger),
//	)
//
//	results, err := p.PresentBatch(ctx, records)
//	for _, r := range results {
//		fmt.Println(r.EventLabel(), r.SubjectLabel(""), "by", r.CauserLabel(""))
//		for _, c := range r.Changes {
//			oldLabel, newLabel := r.ValueLabels(c, "")
//			fmt.Printf("  %s: %s -> %s\n", r.FieldLabel(c.Field), oldLabel, newLabel)
//		}
//	}
//
// # Subject type tokens
//
// EncodeSubjectType and DecodeSubjectType map type tags to URL-safe tokens, using
// configured aliases first and unpadded URL base64 otherwise.
package presenter
