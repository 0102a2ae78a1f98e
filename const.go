package gainmap

// jpegrVersion is reported for metadata that carries no version of its own.
const jpegrVersion = "1.0"
