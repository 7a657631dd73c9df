// Package password hashes and verifies operator passwords with argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Stored hashes carry their own parameters, so the verifier accepts hashes
// produced under older cost settings. [Argon2.NeedsUpgrade] reports whether a
// stored hash is weaker than the current configuration; the engine re-hashes
// on the next successful verification.
//
// Password policy (minimum length, demo-mode restrictions) is not enforced
// here. This package never sees where a password came from or where its hash
// goes.
package password
