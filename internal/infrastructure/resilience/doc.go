/*
Package resilience provides circuit breakers for requests scripts send.

A Breaker moves between three states:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open

Only failures that IsHostFailure attributes to the host count; a request
canceled by its caller is neither a success nor a failure. Group keeps one
breaker per remote host:

	breakers := resilience.NewGroup("send", resilience.Settings{Cooldown: 30 * time.Second})
	resp, err := resilience.Do(breakers.Get(host), func() (*resty.Response, error) {
		return req.Execute(method, url)
	})
*/
package resilience
