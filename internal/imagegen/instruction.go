package imagegen

import "strings"

// TryOnInstruction is sent verbatim with every edit. Image 1 is the person,
// Image 2 the garment; no request field is ever interpolated into it.
const TryOnInstruction = "Edit Image 1. KEEP the person from Image 1 (face, hair, body shape, skin tone, pose) EXACTLY the same. " +
	"Do NOT replace the person. Do NOT move the arms or change the pose. " +
	"Wrap the clothing around their existing body structure. Swap ONLY the clothing to match Image 2. " +
	"Waist up shot. Match Image 1 lighting. " +
	"Background: Place them in a beautiful atrium with blurred flowers in the background."

const (
	SizePortrait  = "1024x1536"
	SizeSquare    = "1024x1024"
	SizeLandscape = "1536x1024"
)

// SizeForAspect maps the requested aspect ratio to an output size. Unknown
// and empty values get the portrait default.
func SizeForAspect(aspect string) string {
	switch strings.ToLower(strings.TrimSpace(aspect)) {
	case "square":
		return SizeSquare
	case "landscape":
		return SizeLandscape
	default:
		return SizePortrait
	}
}
