// Package medikeep is the core of a personal medical-record keeper: a
// patient photographs a prescription, a vision-language model extracts
// structured data from the photo, records are stored with their sensitive
// fields encrypted, and a text-generation model writes a clinical summary
// for a treating physician.
//
// The package deliberately excludes everything presentational: UI,
// navigation, QR rendering, camera plumbing, and notification delivery live
// elsewhere. What lives here are the engineering contracts:
//
//   - Cipher: AES-256-GCM field encryption under a keystore-held key, with
//     the CipherBlob wire format base64(1-byte ivLen || iv || ct+tag) and a
//     fail-soft field policy (encryption failure degrades to plaintext,
//     decryption failure to a fixed sentinel, legacy plaintext passes
//     through) so a broken keystore can never brick the app.
//   - FieldCodec: maps records, profiles, and appointments to their storage
//     encoding, encrypting exactly the fixed sensitive-field sets.
//   - extraction.Pipeline: vision model call plus defensive JSON parsing of
//     the untrusted reply.
//   - summary.Pipeline: history-to-prompt serialization, one model call, and
//     a deterministic four-header section split.
//   - store.RecordStore: the document-store boundary with the codec applied
//     on both sides.
//   - Keeper: the facade tying the above together the way the app screens
//     drive them.
//
// # Quick start
//
//	keys := medikeep.NewInMemoryKeyStore() // or providers/localkeys etc.
//	cipher, _ := medikeep.NewCipher(keys, medikeep.Config{}, logger)
//	codec := medikeep.NewFieldCodec(cipher)
//	records := store.NewRecordStore(store.NewMemoryStore(), codec)
//
//	vision := gemini.New(gemini.Config{APIKey: key})
//	keeper := medikeep.NewKeeper(
//	    records,
//	    extraction.New(vision, logger),
//	    summary.New(vision, 0, logger),
//	    nil,
//	)
//
//	outcome, err := keeper.AnalyzeDocument(ctx, photo)
//	id, err := keeper.SaveAnalysis(ctx, outcome, "Flu checkup", raw, notes)
//	sections, err := keeper.DoctorSummary(ctx)
//
// All blocking operations take a context and propagate cancellation to the
// underlying network requests. Nothing in this core retries automatically.
package medikeep
