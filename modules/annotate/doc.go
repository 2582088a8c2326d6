// Package annotate calls the external text-analysis service that adds
// diacritics (tashkeel) to Arabic text. The service is an opaque HTTP
// collaborator: user text in, structured annotation out. Access control
// lives in the guard middleware, not here.
package annotate
