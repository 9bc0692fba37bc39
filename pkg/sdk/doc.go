// Package labkit is an embeddable client for the labkit toolkit: it loads
// .env settings, fetches and persists the Boston housing dataset, reads
// persisted bundles back and sends prompts to an OpenRouter chat model.
//
//	client, _ := labkit.New(ctx, labkit.WithDataDir("data"))
//	defer client.Close()
//
//	b, _ := client.LoadBostonHousing(ctx)
//	medv, _ := b.Table.Column("MEDV")
//
//	out, _ := client.Generate(ctx, "openai/gpt-4o-mini", "Summarise MEDV in one line.")
//	fmt.Println(out.Content)
//
// Storage defaults to parquet files under the data directory; WithXLSX,
// WithValkey and WithRedis select the other sinks.
package labkit
