// Package scaffold produces the boilerplate files behind a component.
//
// A Generator creates, rewrites, tests and deletes the three files of a
// component (source, markup and styles) under the components directory.
// Local renders them from templates through a filestore.Store. Client talks
// to a Server, the helper service the authoring canvas runs next to the
// project, so the browser never touches the file system.
//
// # Usage
//
//	gen := scaffold.NewLocal(filestore.NewOS(), "src/app/components")
//	res, err := gen.Generate(ctx, "secondary-button")
//
//	srv := scaffold.NewServer(gen, logger)
//	http.ListenAndServe("localhost:4202", srv.Handler())
//
//	client := scaffold.NewClient("http://localhost:4202")
//	ok, err := client.Exists(ctx, "secondary-button")
//
// Identifiers are validated before any file is touched.
package scaffold
