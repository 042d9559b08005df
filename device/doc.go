// Package device classifies an incoming login request into a platform and a
// display name for the "active devices" list.
//
// Classification is header based. An explicit X-Client-Platform header wins;
// otherwise the User-Agent is inspected for native app markers. Anything not
// recognized is treated as web, which carries the shorter TTL.
package device
