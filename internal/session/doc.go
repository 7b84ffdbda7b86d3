// Package session runs gated materializations. A Session owns the chunk
// store and the materializer for one engine configuration, and every Run
// goes through the same four stages:
//
//  1. the static gate (validate.CheckStatic) rejects graphs that can never
//     produce a correct result;
//  2. the chunk planner picks a scheme from the largest array involved;
//  3. the materializer evaluates the requested roots chunk by chunk;
//  4. the result gate (validate.CheckResult) marks each result usable or
//     not, without discarding it.
package session
