// Package medscribe turns recorded or typed medical conversations into
// structured clinical reports.
//
// A Service owns the report store, the knowledge base, the model
// adapters and the pipeline that chains them:
//
//	svc, err := medscribe.NewService(ctx, "/var/lib/medscribe",
//	    medscribe.WithAIConfig(ai.NewConfig(ai.WithBackend(ai.BackendOpenAI))),
//	)
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	result, err := svc.Process(ctx, pipeline.Input{Text: conversation})
//
// An empty path keeps reports and knowledge in memory.
package medscribe
