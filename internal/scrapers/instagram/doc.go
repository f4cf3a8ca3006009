package instagram

// every client in this package is read-only: each method's output depends
// solely on its input, with the session login state as the one implied
// extra input. nothing here mutates state on the upstream.

// each fetch method follows the same shape:
// 1. validate input.
// 2. build the HTTP request (host, headers, query).
// 3. make the request.
// 4. validate the response (status, content type, expected body shape).
// 5. transform the body into the output struct.

// the transform step varies by surface: json -> struct for the api hosts,
// goquery selectors + embedded-script extraction for the html ones.
