/*
Package sandbox runs user scripts against a request context.

# Overview

A script is compiled into an async function and called with a curated set of
parameters:

  - insomnia (also $): the sandbox root object built by sdk.InitInsomniaObject
  - require: resolves the whitelisted modules (uuid, lodash)
  - console: records rows returned to the host as logs
  - _: a small lodash-style namespace
  - setTimeout: a timer tracked as an async task

setImmediate, queueMicrotask and process are passed as undefined.

# Execution

Every run gets its own goja VM on a goja_nodejs event loop. The run races the
script against a deadline (5s by default, or context.timeout); a run that
loses is interrupted and reported as ErrScriptTimeout.

Before the script body starts, async task tracking is reset. Tests, timers and
sendRequest calls register tasks; after the body finishes, tracking stops and
the run waits for the pending tasks before the object graph is merged back.

Calls to insomnia.test( and insomnia.test.skip( get an implicit await. The
rewrite tokenizes the script, so matches in strings and comments stay as
written.

# Results

The script must return the root object. Anything else, including an early
return, is a ContractViolationError. Thrown exceptions and rejected promises
become a ScriptError.
*/
package sandbox
