// Package installer keeps the local record of installed plugins.
//
// An Installer owns an install directory:
//
//	<dir>/manifest.json            every installed plugin, keyed "namespace/name"
//	<dir>/<namespace>/<name>/      one directory per plugin
//	    config.json                enabled flag and settings
//	    plugin.json                metadata snapshot plus installedVersion
//
// The manifest is loaded once by New and rewritten in full, through a temp
// file and rename, after every mutation. The per-plugin files are written
// for external tooling and never read back.
//
// Operations return a Result. Expected failures such as an unknown plugin
// or a version that was never published come back as a Result with OK
// false and an error code; the error return is reserved for filesystem
// failures.
//
//	in, err := installer.New(dir, reg)
//	res, err := in.Install(ctx, "acme", "widget", "")
//	if err != nil {
//	    return err // disk trouble
//	}
//	if !res.OK {
//	    fmt.Println(res.Message) // e.g. already installed
//	}
package installer
