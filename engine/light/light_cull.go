package light

// TileSize is the width and height in pixels of each screen-space tile used
// for tiled light culling. The screen is divided into a grid of tiles, each
// TileSize x TileSize pixels, and point lights are assigned to tiles via a
// compute shader so the forward fragment shader only evaluates lights relevant
// to each tile.
const TileSize = 16

// MaxLightsPerTile is the number of light index slots stored per tile in the
// tile light indices buffer. If more lights overlap a tile, excess lights are
// silently dropped.
const MaxLightsPerTile = 256

// TileCounts computes the number of tiles in each dimension for a given screen
// resolution and the configured TileSize. Each dimension is at least one tile
// so the culling grid and its buffers never degenerate to zero size.
//
// Parameters:
//   - screenWidth: screen width in pixels
//   - screenHeight: screen height in pixels
//
// Returns:
//   - tileCountX: number of tile columns
//   - tileCountY: number of tile rows
func TileCounts(screenWidth, screenHeight uint32) (tileCountX, tileCountY uint32) {
	tileCountX = (screenWidth + TileSize - 1) / TileSize
	tileCountY = (screenHeight + TileSize - 1) / TileSize
	if tileCountX == 0 {
		tileCountX = 1
	}
	if tileCountY == 0 {
		tileCountY = 1
	}
	return
}
