// Package calculator implements the string calculator: it sums the integers
// embedded in a delimited string.
//
// An input may start with a declaration line such as "//$,@\n". Every
// character after the "//" prefix on that line becomes a delimiter, so
// multi-character declarations like "***" split on '*'. Newlines in the body
// are ignored, non-numeric tokens are dropped, values above 1000 do not
// count, and any negative value fails the whole call with a
// *NegativeNumbersError listing all of them.
package calculator
