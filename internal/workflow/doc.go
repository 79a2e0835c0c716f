// Package workflow sequences scaffold generation, catalog updates and tree
// passes into the promote, compose and delete actions of the authoring
// canvas.
//
// # States
//
//	Idle -> PendingPromotion -> Promoted
//	Idle -> PendingComposition -> Composed
//
// Begin* only records the request. Confirm* runs it: the scaffold step
// first, then the catalog, then the optional reference pass. A scaffold
// failure returns the workflow to Idle before the catalog is touched, and a
// catalog failure leaves the tree untouched. Tree passes are best-effort;
// their partial reports are returned together with the result.
//
// Delete, Clean and SyncSuperComponents are single-step operations that
// leave the workflow Idle.
//
// # Concurrency
//
// One operation runs at a time. A call made while another is running fails
// immediately with E205 instead of queueing.
//
// Every error carries the step that failed (scaffold, catalog or file-tree)
// so the remainder can be finished by hand.
package workflow
