// Package assignment implements deterministic, persistent variant assignment.
//
// Bucket is a pure function of (experiment, subject, variant count). Engine
// combines it with an AssignmentStore so that the first answer for a subject
// is stored and returned forever after, regardless of later changes to the
// variant list.
//
//	engine := assignment.NewEngine(store)
//	a, err := engine.Assign(ctx, assignment.Request{
//	    ExperimentID: "exp_quote",
//	    SubjectID:    "session-42",
//	})
package assignment
