/*
Package sdk implements the object model scripts see: requests, responses,
URLs, headers, proxies, certificates, cookies, variable scopes and the test
recorder, together with the transforms between that model and the host's
persisted records.

# Lifecycle

	obj, err := sdk.InitInsomniaObject(ctx, log)   // host context -> object graph
	// ... a script mutates obj ...
	merged := sdk.MergeContext(ctx, obj.ToObject(), logs)

InitInsomniaObject never performs IO. MergeContext keeps every host member
the object model cannot represent.

# Variable Scopes

Lookups run local > iteration data > environment > collection > globals.
When the selected environment is the base environment, both names refer to
the same *Environment.

# Proxies

A ProxyConfigList resolves to the first matching entry in list order.
*/
package sdk
