// Package runtime creates content instances from serialized descriptors.
//
// Content types register a Constructor under their machine name. The
// Runtime parses the descriptor's library string, validates its params,
// resolves the constructor and hands it an Extras bag holding a prepared
// *ContentType base:
//
//	rt := runtime.New(runtime.Config{Env: env})
//	_ = rt.Register("H5P.TrueFalse", func(ctx context.Context, params json.RawMessage, contentID int64, extras runtime.Extras) (runtime.Instance, error) {
//	    tf := &TrueFalse{ContentType: extras.Base}
//	    return tf, json.Unmarshal(params, &tf.params)
//	})
//
//	inst, err := rt.NewRunnable(ctx, runtime.Descriptor{
//	    Library: "H5P.TrueFalse 1.8",
//	    Params:  json.RawMessage(`{"question":"Is Oslo in Norway?","correct":"true"}`),
//	}, 42, runtime.AttachTo(runtime.NewElement("h5p-content")), runtime.Standalone())
//
// Embedding *ContentType gives a content type event dispatch, its identity
// and the xAPI helpers. Everything else is optional: Scorer, Stateful,
// Resettable, SolutionShower, AnswerReporter, XAPIDataProvider and Task are
// discovered with type assertions.
//
// Construction never panics the caller. Failures are returned as
// *ConstructionError, logged and counted.
package runtime
