// Package privacy provides rules that decide whether a table write may run.
//
// A Policy is an ordered list of rules evaluated before Table.Insert,
// Table.Update and Table.Delete reach the database. Each rule returns one
// of three decisions:
//
//   - Allow: the write runs and evaluation stops
//   - Deny: the write is rejected and evaluation stops
//   - Skip: the next rule decides
//
// A write that every rule skips is allowed. End a policy with
// AlwaysDenyRule to deny by default:
//
//	posts, err := table.New(ctx, adapter, store, "posts",
//		table.WithPolicy(
//			privacy.DenyIfNoViewer(),
//			privacy.HasRole("admin"),
//			privacy.OnMutationOperation(privacy.IsOwner("user_id"), privacy.OpUpdate|privacy.OpDelete),
//			privacy.AlwaysDenyRule(),
//		),
//	)
//
// The viewer is carried by the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "7", Roles: []string{"editor"}})
//
// Denied writes return an error wrapping Deny:
//
//	if errors.Is(err, privacy.Deny) { ... }
package privacy
