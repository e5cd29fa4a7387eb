// Package locator finds and loads the native Flow runtime library.
//
// A Locator tries its configured strategies in order:
//
//   - system: the bare platform file name (libflowjni.so, libflowjni.dylib,
//     flowjni.dll) is handed to the loader, which searches the platform
//     library path.
//   - bundled: native/<file name> is read from an fs.FS (usually an
//     embed.FS), extracted to a temporary file and loaded from disk.
//   - dev: each development build directory is checked relative to the
//     working directory.
//
// The first success wins and is remembered; every later Load returns the
// same library. When every strategy fails the error is a
// errors.KindLibraryLoad carrying each strategy's failure.
//
// Configuration is data, not code:
//
//	cfg, err := locator.LoadConfig("flow.yaml")
//	lib, err := locator.New(cfg).Load(ctx)
//
// FLOW_* environment variables override the file, for example
// FLOW_DRIVER=wasm or FLOW_DEV_PATHS=build,out.
package locator
