package common

// EncryptionKeyField is the multipart field and query parameter carrying the
// caller's passphrase.
const EncryptionKeyField = "encryptionKey"

// OriginalNameTag is the blob metadata key holding the uploader's file name.
const OriginalNameTag = "original-name"
